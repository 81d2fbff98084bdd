package room

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Answers is a sparse, index-addressed list of yes/no answers. A nil
// entry means the question at that index was not answered.
type Answers []*bool

// At reports the answer at index i and whether one was given.
func (a Answers) At(i int) (bool, bool) {
	if i < 0 || i >= len(a) || a[i] == nil {
		return false, false
	}
	return *a[i], true
}

// Answered reports whether index i holds an answer.
func (a Answers) Answered(i int) bool {
	_, ok := a.At(i)
	return ok
}

// With returns a copy of a with index i set to value, growing the list
// with holes as needed.
func (a Answers) With(i int, value bool) Answers {
	size := len(a)
	if i >= size {
		size = i + 1
	}
	out := make(Answers, size)
	copy(out, a)
	v := value
	out[i] = &v
	return out
}

// Count returns how many indices below limit hold an answer.
func (a Answers) Count(limit int) int {
	count := 0
	for i := 0; i < limit && i < len(a); i++ {
		if a[i] != nil {
			count++
		}
	}
	return count
}

func (a Answers) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*bool(a))
}

// UnmarshalJSON accepts either a JSON array with null holes or an object
// keyed by decimal index, which is how tree stores persist sparse arrays.
func (a *Answers) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Answers{}
		return nil
	}
	if trimmed[0] == '[' {
		var list []*bool
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*a = Answers(list)
		return nil
	}
	if trimmed[0] != '{' {
		return errors.New("answers must be an array or an index-keyed object")
	}
	var keyed map[string]*bool
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return err
	}
	out := Answers{}
	for key, value := range keyed {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index > maxAnswerIndex {
			return errors.New("answers object has a non-index key")
		}
		if value == nil {
			continue
		}
		out = out.With(index, *value)
	}
	*a = out
	return nil
}

func (a Answers) clone() Answers {
	out := make(Answers, len(a))
	for i, v := range a {
		if v != nil {
			value := *v
			out[i] = &value
		}
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}
