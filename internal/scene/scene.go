// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// A scene is the set of expressions a user keeps in one or more .hcl files:
//
//	expression {
//	  id   = "area"
//	  expr = "area = pi * pow(r, 2)"
//	}
//
// Files are read in sorted path order and blocks in file order, so the
// resulting list is stable. Blocks without an id get a random one.
package scene

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/mathscope/internal/ctxlog"
	"github.com/vk/mathscope/internal/fsutil"
)

// Expression is one expression block.
type Expression struct {
	ID   string
	Expr string
	// Range is where the block was declared.
	Range hcl.Range
}

// Scene is every expression found in the loaded files.
type Scene struct {
	Expressions []*Expression
}

// IDs returns the expression ids in load order.
func (s *Scene) IDs() []string {
	ids := make([]string, len(s.Expressions))
	for i, e := range s.Expressions {
		ids[i] = e.ID
	}
	return ids
}

// hclSceneFile represents the top-level structure of a scene file for decoding.
type hclSceneFile struct {
	Expressions []*hclExpression `hcl:"expression,block"`
	Remain      hcl.Body         `hcl:",remain"`
}

type hclExpression struct {
	ID       *string   `hcl:"id,optional"`
	Expr     string    `hcl:"expr"`
	DefRange hcl.Range `hcl:",def_range"`
}

// Load finds every .hcl file under paths and decodes its expression blocks.
// Ids must be unique across all files.
func Load(ctx context.Context, paths ...string) (*Scene, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scene.", "paths", paths)

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to find scene files: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("No .hcl scene files found.", "paths", paths)
		return &Scene{}, nil
	}

	parser := hclparse.NewParser()
	scene := &Scene{}
	declared := make(map[string]hcl.Range)
	for _, file := range files {
		exprs, err := loadFile(file, parser)
		if err != nil {
			return nil, err
		}
		for _, e := range exprs {
			if prev, ok := declared[e.ID]; ok {
				return nil, fmt.Errorf("%s: expression id %q already declared at %s", e.Range, e.ID, prev)
			}
			declared[e.ID] = e.Range
		}
		scene.Expressions = append(scene.Expressions, exprs...)
	}

	logger.Debug("Scene loaded.", "files", len(files), "expressions", len(scene.Expressions))
	return scene, nil
}

func loadFile(path string, parser *hclparse.Parser) ([]*Expression, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclSceneFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	exprs := make([]*Expression, 0, len(parsed.Expressions))
	for _, block := range parsed.Expressions {
		id := uuid.NewString()
		if block.ID != nil {
			if *block.ID == "" {
				return nil, fmt.Errorf("%s: expression id must not be empty", block.DefRange)
			}
			id = *block.ID
		}
		exprs = append(exprs, &Expression{ID: id, Expr: block.Expr, Range: block.DefRange})
	}
	return exprs, nil
}
