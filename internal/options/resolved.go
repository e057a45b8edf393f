package options

import (
	"fmt"
	"io/fs"
	"strings"
)

// Option names recognized by the tangle pipeline.
const (
	KeyTangle      = "tangle"
	KeyNoweb       = "noweb"
	KeyNowebRef    = "noweb-ref"
	KeyNowebPrefix = "noweb-prefix"
	KeyComments    = "comments"
	KeyMkdirp      = "mkdirp"
	KeyTangleMode  = "tangle-mode"
	KeyShebang     = "shebang"
	KeyName        = "name"
)

// ValueError reports an option whose value cannot be interpreted.
type ValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf(":%s: %v", e.Key, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// Resolved is the typed view of a merged option set.
type Resolved struct {
	Tangle      TangleSpec
	Noweb       NowebMode
	NowebRef    string
	NowebPrefix bool
	Comments    CommentMode
	Mkdirp      bool
	Mode        fs.FileMode
	Shebang     string
	Set         Set
	// Origins names the layer that supplied each option.
	Origins     map[string]string
}

// Resolve converts a merged Set into typed options. Invalid values are
// reported with the offending option name.
func Resolve(set Set) (Resolved, error) {
	r := Resolved{Set: set}
	var err error

	r.Tangle = ParseTangle(set[KeyTangle])
	if r.Noweb, err = ParseNoweb(set[KeyNoweb]); err != nil {
		return r, &ValueError{Key: KeyNoweb, Value: set[KeyNoweb], Err: err}
	}
	if r.Comments, err = ParseComments(set[KeyComments]); err != nil {
		return r, &ValueError{Key: KeyComments, Value: set[KeyComments], Err: err}
	}
	if r.NowebPrefix, err = ParseBool(set[KeyNowebPrefix], true); err != nil {
		return r, &ValueError{Key: KeyNowebPrefix, Value: set[KeyNowebPrefix], Err: err}
	}
	if r.Mkdirp, err = ParseBool(set[KeyMkdirp], false); err != nil {
		return r, &ValueError{Key: KeyMkdirp, Value: set[KeyMkdirp], Err: err}
	}
	if r.Mode, err = ParseFileMode(set[KeyTangleMode]); err != nil {
		return r, &ValueError{Key: KeyTangleMode, Value: set[KeyTangleMode], Err: err}
	}
	r.NowebRef = strings.TrimSpace(set[KeyNowebRef])
	r.Shebang = strings.TrimSpace(set[KeyShebang])
	return r, nil
}
