package server

import (
	"sync"

	"github.com/donok1/wedding-quiz/internal/room"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			_, err := room.NormalizeCode(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("guestname", func(fl validator.FieldLevel) bool {
			_, err := room.NormalizeGuestName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("fieldpath", func(fl validator.FieldLevel) bool {
			return room.KnownPath(fl.Field().String())
		})
	})
}
