package storage

import (
	"fmt"
	"regexp"
	"time"

	"github.com/pixil98/go-errors"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// recordFormat is written into every record this build saves. Records in a
// newer format are refused rather than half read.
const recordFormat = 1

type Validator interface {
	Validate() error
}

// record is what lands on disk: the body plus enough to check it on load.
type record[T Validator] struct {
	Format int       `json:"format"`
	Key    string    `json:"key"`
	Saved  time.Time `json:"saved"`
	Body   T         `json:"body"`
}

func (r *record[T]) validate() error {
	el := errors.NewErrorList()

	switch {
	case r.Format <= 0:
		el.Add(fmt.Errorf("format must be set"))
	case r.Format > recordFormat:
		el.Add(fmt.Errorf("format %d is newer than supported format %d", r.Format, recordFormat))
	}

	if !keyPattern.MatchString(r.Key) {
		el.Add(fmt.Errorf("key %q must be non-empty and alphanumeric", r.Key))
	}

	el.Add(r.Body.Validate())

	return el.Err()
}
