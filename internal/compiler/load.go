package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// Document is one declaration as read from a file, before typing.
type Document struct {
	// Source is "path:line" for error messages.
	Source string
	// Label is the CUE struct label, empty for YAML and JSON.
	Label string
	Raw   any
}

// Load reads declarations from a file or a directory. A directory is not
// walked recursively: its .cue files are loaded as one CUE instance and
// every .yaml, .yml and .json file is read on its own. Documents come back
// CUE first, then per file in name order.
func Load(path string) ([]Document, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "no such file or directory"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	if !info.IsDir() {
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".cue":
			return loadCUE(filepath.Dir(path), []string{"./" + filepath.Base(path)})
		case ".yaml", ".yml", ".json":
			return loadYAML(path)
		default:
			return nil, &LoadError{Code: ErrCodeUnsupported, Path: path, Message: fmt.Sprintf("unsupported extension %q", ext)}
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	var hasCUE bool
	var dataFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".cue":
			hasCUE = true
		case ".yaml", ".yml", ".json":
			dataFiles = append(dataFiles, filepath.Join(path, e.Name()))
		}
	}
	if !hasCUE && len(dataFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Path: path, Message: "no .cue, .yaml, .yml or .json files"}
	}

	var docs []Document
	if hasCUE {
		cueDocs, err := loadCUE(path, []string{"."})
		if err != nil {
			return nil, err
		}
		docs = append(docs, cueDocs...)
	}
	for _, f := range dataFiles {
		fileDocs, err := loadYAML(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func loadCUE(dir string, args []string) ([]Document, error) {
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeParse, Path: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueLoadError(dir, ErrCodeParse, inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueLoadError(dir, ErrCodeParse, err)
	}

	schemasVal := value.LookupPath(cue.ParsePath("schema"))
	if !schemasVal.Exists() {
		return nil, &LoadError{Code: ErrCodeLayout, Path: dir, Message: `no top-level "schema" struct`}
	}
	iter, err := schemasVal.Fields()
	if err != nil {
		return nil, cueLoadError(dir, ErrCodeLayout, err)
	}

	var docs []Document
	for iter.Next() {
		v := iter.Value()
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, cueLoadError(dir, ErrCodeNotConcrete, err)
		}
		raw, err := decodeJSON(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Path: dir, Message: err.Error()}
		}
		docs = append(docs, Document{
			Source: cueSource(v, dir),
			Label:  iter.Label(),
			Raw:    raw,
		})
	}
	return docs, nil
}

// cueLoadError extracts the first position CUE reports.
func cueLoadError(dir, code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Path: dir, Message: err.Error()}
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0]
		return &LoadError{Code: code, Path: pos.Filename(), Line: pos.Line(), Message: first.Error()}
	}
	return &LoadError{Code: code, Path: dir, Message: first.Error()}
}

func cueSource(v cue.Value, dir string) string {
	pos := v.Pos()
	if !pos.IsValid() {
		return dir
	}
	return fmt.Sprintf("%s:%d", pos.Filename(), pos.Line())
}

// decodeJSON keeps numbers exact so 1 and 1.5 are told apart downstream.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// loadYAML reads a YAML or JSON file whose root mapping carries a
// "schemas" sequence.
func loadYAML(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &LoadError{Code: ErrCodeLayout, Path: path, Message: `empty document, expected a "schemas" key`}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &LoadError{Code: ErrCodeLayout, Path: path, Line: top.Line, Message: "root must be a mapping"}
	}

	var seq *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == "schemas" {
			seq = top.Content[i+1]
			break
		}
	}
	if seq == nil {
		return nil, &LoadError{Code: ErrCodeLayout, Path: path, Line: top.Line, Message: `missing "schemas" key`}
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, &LoadError{Code: ErrCodeLayout, Path: path, Line: seq.Line, Message: `"schemas" must be a sequence`}
	}

	docs := make([]Document, 0, len(seq.Content))
	for _, item := range seq.Content {
		var raw any
		if err := item.Decode(&raw); err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Path: path, Line: item.Line, Message: err.Error()}
		}
		docs = append(docs, Document{
			Source: fmt.Sprintf("%s:%d", path, item.Line),
			Raw:    raw,
		})
	}
	return docs, nil
}
