package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/morozRed/tangle/internal/state"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func IsCorruptStateError(err error) bool {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

// LoadState reads the run state under rootPath. A corrupt state file is
// replaced by an empty one.
func LoadState(rootPath, stateDir string, log *zap.Logger) (*state.State, string, error) {
	dir := stateDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	st, err := state.Load(dir)
	if err != nil {
		if !IsCorruptStateError(err) {
			return nil, dir, err
		}
		log.Warn("corrupt state file, starting from empty state", zap.Error(err))
		st = state.NewState()
	}
	return st, dir, nil
}

// WarningMessages flattens accumulated warnings for summaries.
func WarningMessages(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
