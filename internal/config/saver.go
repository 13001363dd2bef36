package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save validates cfg and writes it to path. An existing file is copied to
// path+".bak" first; the new content lands through a rename so readers never
// see a partial file. The file holds an API key and is written 0600.
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		var ic *InvalidConfigError
		if errors.As(err, &ic) {
			ic.Path = path
		}
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := checkWritable(path); err != nil {
		return err
	}
	if err := backupConfig(path); err != nil {
		return fmt.Errorf("failed to back up config: %w", err)
	}
	return atomicWrite(path, data)
}

// backupConfig copies path to path.bak. A missing file needs no backup.
func backupConfig(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path+".bak", data, 0o600)
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr, os.Chmod(tmpPath, 0o600)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// checkWritable probes the directory with a temp file and, when path exists,
// opens it for writing.
func checkWritable(path string) error {
	dir := filepath.Dir(path)

	probe, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return newPermissionError("write", dir, "Cannot write to config directory")
	}
	probe.Close()
	os.Remove(probe.Name())

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	switch {
	case err == nil:
		f.Close()
	case os.IsPermission(err):
		return newPermissionError("write", path, "Config file is read-only")
	}
	return nil
}
