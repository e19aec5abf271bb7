package backend

import "github.com/a2-ai/dvs/internal/dvserr"

func errNotInWorkspace(dir string) error {
	return dvserr.Wrap(dvserr.KindNotInWorkspace, dir,
		errString("no .git directory or DVS repo config found in any parent directory"))
}

type errString string

func (e errString) Error() string { return string(e) }
