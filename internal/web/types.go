package web

import "github.com/donok1/wedding-quiz/internal/room"

// DisplayState is everything the admin display page renders.
type DisplayState struct {
	Code           string
	JoinURL        string
	QRPath         string
	RefreshSeconds int
	View           room.View
}
