// Package manifest loads the list of datasets fetched by `kbai fetch --manifest`.
//
// TOML:
//
//	[[datasets]]
//	url = "https://example.com/kb.zip"
//	destination = "data/kb"
//	skip_if_not_empty = false
//
// YAML:
//
//	datasets:
//	  - url: https://example.com/kb.zip
//	    destination: data/kb
package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type dataset struct {
	URL            string `toml:"url" yaml:"url"`
	Destination    string `toml:"destination" yaml:"destination"`
	SkipIfNotEmpty *bool  `toml:"skip_if_not_empty" yaml:"skip_if_not_empty"`
}

type document struct {
	Datasets []dataset `toml:"datasets" yaml:"datasets"`
}

// Load reads a manifest file. The format is chosen by extension: .toml,
// .yaml or .yml. Relative destinations are resolved against the directory of
// the manifest.
func Load(path string) ([]*model.FetchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	reqs, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load manifest", goerr.V("path", path))
	}

	baseDir := filepath.Dir(path)
	for _, req := range reqs {
		if !filepath.IsAbs(req.Destination) {
			req.Destination = filepath.Join(baseDir, req.Destination)
		}
	}

	return reqs, nil
}

// Parse decodes manifest data of the format named by ext and validates every
// dataset
func Parse(ext string, data []byte) ([]*model.FetchRequest, error) {
	var doc document

	switch strings.ToLower(ext) {
	case ".toml":
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return nil, goerr.Wrap(err, "invalid TOML manifest", goerr.T(types.ErrTagInvalidRequest))
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return nil, goerr.Wrap(err, "invalid YAML manifest", goerr.T(types.ErrTagInvalidRequest))
		}
	default:
		return nil, goerr.New("unsupported manifest format",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("ext", ext),
		)
	}

	if len(doc.Datasets) == 0 {
		return nil, goerr.New("manifest has no datasets", goerr.T(types.ErrTagInvalidRequest))
	}

	reqs := make([]*model.FetchRequest, 0, len(doc.Datasets))
	for i, ds := range doc.Datasets {
		req := model.NewFetchRequest(ds.URL, ds.Destination)
		if ds.SkipIfNotEmpty != nil {
			req.SkipIfNotEmpty = *ds.SkipIfNotEmpty
		}
		if err := req.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid dataset", goerr.V("index", i))
		}
		reqs = append(reqs, req)
	}

	return reqs, nil
}
