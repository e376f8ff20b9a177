package rfc

import (
	"strconv"

	"github.com/pkg/errors"
)

// keyImpl implements the channel key mode (+k), registered in the
// ParamOnUnset category. The parameter is validated the same way on both
// set and unset, so clearing the key takes a non-empty parameter rather
// than a bare "-k"; that parameter is not compared against the stored
// key.
type keyImpl struct{}

func (keyImpl) CheckSet(param string) ([]string, error) {
	if len(param) == 0 {
		return nil, errors.New("channel key must not be empty")
	}
	return []string{param}, nil
}

func (keyImpl) CheckUnset(param string) ([]string, error) {
	if len(param) == 0 {
		return nil, errors.New("channel key required to unset")
	}
	return []string{param}, nil
}

// limitImpl implements the channel user-limit mode (+l).
type limitImpl struct{}

func (limitImpl) CheckSet(param string) ([]string, error) {
	n, err := strconv.Atoi(param)
	if err != nil || n <= 0 {
		return nil, errors.New("limit must be a positive integer")
	}
	return []string{param}, nil
}

func (limitImpl) CheckUnset(param string) ([]string, error) {
	return []string{""}, nil
}
