package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/zkparallel/internal/config"
	"github.com/specialistvlad/zkparallel/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from paths and merges their blocks
// into one model. At most one settings and one chain block may be declared
// across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var settingsSeen, chainSeen bool

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Settings {
			if settingsSeen {
				return nil, fmt.Errorf("%s: duplicate settings block", file)
			}
			settingsSeen = true
			model.Settings = l.translateSettings(s)
		}
		for _, c := range root.Chain {
			if chainSeen {
				return nil, fmt.Errorf("%s: duplicate chain block", file)
			}
			chainSeen = true
			chain, err := l.translateChain(c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Chain = chain
		}
		for _, c := range root.Circuits {
			desc, err := l.translateCircuit(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Circuits = append(model.Circuits, desc)
		}
		for _, r := range root.Relays {
			relay, err := l.translateRelay(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Relays = append(model.Relays, relay)
		}
	}

	model.Settings.Defaults()
	if err := model.Settings.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "circuits", len(model.Circuits), "relays", len(model.Relays), "chain", model.Chain != nil)
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
