package cmd

import (
	"os"

	"github.com/pkg/errors"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/validate"
)

// osFileReader loads include sources straight from disk.
type osFileReader struct{}

func (osFileReader) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(b), nil
}

// loadArchitecture runs C1-C5 against entryPath: include resolution,
// per-file model building, merge/inheritance, and validation. Any error
// or collected failure is rendered into a single error value so callers
// can report-and-exit uniformly.
func loadArchitecture(entryPath string) (*model.Architecture, error) {
	units, errs := dsl.Resolve(entryPath, osFileReader{})
	if errs.HasErrors() {
		return nil, errors.New(errs.Error())
	}

	built := make([]*model.Unit, 0, len(units))
	for _, u := range units {
		bu, berr := model.Build(u)
		if berr != nil {
			return nil, errors.Wrap(berr, "build model")
		}
		built = append(built, bu)
	}

	arch, merr := model.Merge(built)
	if merr != nil {
		return nil, errors.Wrap(merr, "merge model")
	}

	res := validate.Validate(arch)
	if res.HasErrors() {
		return nil, errors.New(res.Error())
	}

	return arch, nil
}
