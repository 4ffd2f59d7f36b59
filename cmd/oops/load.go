package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/oops/vm"
	"github.com/chazu/oops/vm/image"
)

var loadLog = commonlog.GetLogger("oops.load")

// prepare restores the configured image, then evaluates every source
// file in order.
func prepare(in *vm.Interpreter, cfg config) error {
	if err := loadImageIfSet(in, cfg); err != nil {
		return err
	}
	return loadFiles(in, cfg.files)
}

func loadImageIfSet(in *vm.Interpreter, cfg config) error {
	if cfg.loadImage == "" {
		return nil
	}
	if err := image.Load(cfg.loadImage, in.Classes()); err != nil {
		return err
	}
	loadLog.Infof("loaded image %s (%d classes)", cfg.loadImage, in.Classes().Len())
	return nil
}

// loadFiles evaluates each file in order, stopping at the first failure.
func loadFiles(in *vm.Interpreter, files []string) error {
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = loadReader(in, path, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// loadReader evaluates the whole of r as one program named name.
func loadReader(in *vm.Interpreter, name string, r io.Reader) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	loadLog.Debugf("loading %s", name)
	if _, err := in.EvalString(string(src)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func saveImage(in *vm.Interpreter, path string) error {
	return image.Save(path, in.Classes())
}
