package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a2-ai/dvs/internal/backend"
	"github.com/a2-ai/dvs/internal/config"
	"github.com/a2-ai/dvs/internal/dvserr"
	"github.com/a2-ai/dvs/internal/oid"
	"github.com/a2-ai/dvs/internal/version"
)

// InitOptions configures Init (spec §4.4).
type InitOptions struct {
	StorageDir     string
	Permissions    *uint32
	Group          string
	HashAlgo       oid.Algo
	MetadataFormat config.MetadataFormat
	Format         config.Format // file format for the new config; default TOML
}

// Init creates or validates an empty workspace at dir, per spec §4.4.
func Init(dir string, opts InitOptions) error {
	be, err := backend.Discover(dir)
	if err != nil {
		return err
	}
	root := be.Root()

	if err := resolveStorageDir(opts.StorageDir); err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		format = config.FormatTOML
	}

	want := &config.Config{
		StorageDir:     opts.StorageDir,
		Permissions:    opts.Permissions,
		Group:          opts.Group,
		HashAlgo:       opts.HashAlgo,
		MetadataFormat: opts.MetadataFormat,
		GeneratedBy: &config.GeneratedBy{
			Tool:    version.Package(),
			Version: version.Version(),
			Commit:  version.Revision(),
		},
	}

	existingPath, existingFormat, discErr := config.Discover(root)
	if discErr == nil {
		existing, err := config.Load(existingPath, existingFormat)
		if err != nil {
			return err
		}
		if !existing.Equal(want) {
			return dvserr.New(dvserr.KindConfigMismatch,
				fmt.Sprintf("existing config at %s differs (storage_dir/hash_algo)", existingPath))
		}
		// Semantically identical: no-op, per spec §4.4 step 2. Per spec §9's
		// correction of the legacy behaviour, init never ignores a global
		// *.dvs/*.dvs.toml pattern; Add ignores each data file by its own
		// name once it exists (spec §4.5 step 4d).
		return nil
	}
	if !os.IsNotExist(discErr) {
		return discErr
	}

	path := filepath.Join(root, configFileName(format))
	return config.WriteAtomic(path, want, format)
}

func configFileName(format config.Format) string {
	for _, fn := range config.FileNames {
		if fn.Format == format {
			return fn.Name
		}
	}
	return "dvs.toml"
}

// resolveStorageDir creates storageDir (with default 0o770 permissions) if
// missing, failing StorageDirInvalid if the path exists as a non-directory
// (spec §4.4 step 1).
func resolveStorageDir(storageDir string) error {
	info, err := os.Stat(storageDir)
	if err == nil {
		if !info.IsDir() {
			return dvserr.New(dvserr.KindStorageDirInvalid,
				fmt.Sprintf("%s exists and is not a directory", storageDir))
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return dvserr.Wrap(dvserr.KindStorageDirInvalid, storageDir, err)
	}
	if err := os.MkdirAll(storageDir, 0o770); err != nil {
		return dvserr.Wrap(dvserr.KindStorageDirInvalid, storageDir, err)
	}
	return nil
}
