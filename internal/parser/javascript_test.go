package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsSample = `import React from 'react';
import { useState, useEffect } from 'react';
import * as path from 'path';
const fs = require('fs');
import { helper } from './utils';

class Cart extends Component {
  constructor(props) {
    super(props);
  }

  addItem(item) {
    return item;
  }

  _recalculate() {
  }
}

export function render(props) {
  return props;
}

const total = (items) => {
  return items.length;
};
`

func javascriptParsers() map[string]*JavaScriptParser {
	return map[string]*JavaScriptParser{
		"grammar":  NewJavaScriptParser(true),
		"fallback": NewJavaScriptParser(false),
	}
}

func TestJavaScriptImports(t *testing.T) {
	for tier, p := range javascriptParsers() {
		t.Run(tier, func(t *testing.T) {
			imports := p.ExtractImports(jsSample)
			require.Len(t, imports, 5)

			var relative, namespace, commonjs *ParsedImport
			for i := range imports {
				switch {
				case imports[i].IsRelative:
					relative = &imports[i]
				case imports[i].Alias == "path":
					namespace = &imports[i]
				case imports[i].Module == "fs":
					commonjs = &imports[i]
				}
			}

			require.NotNil(t, relative)
			assert.Equal(t, "./utils", relative.Module)
			assert.Equal(t, []string{"helper"}, relative.Items)

			require.NotNil(t, namespace)
			assert.Equal(t, []string{"*"}, namespace.Items)

			require.NotNil(t, commonjs)
			assert.Equal(t, []string{"fs"}, commonjs.Items)
		})
	}
}

func TestJavaScriptClasses(t *testing.T) {
	for tier, p := range javascriptParsers() {
		t.Run(tier, func(t *testing.T) {
			classes := p.ExtractClasses(jsSample)
			require.Len(t, classes, 1)

			cls := classes[0]
			assert.Equal(t, "Cart", cls.Name)
			assert.Equal(t, "Component", cls.ParentClass)
			assert.Equal(t, 7, cls.LineStart)
			assert.Equal(t, 18, cls.LineEnd)

			require.Len(t, cls.Methods, 3)
			assert.Equal(t, "constructor", cls.Methods[0].Name)
			assert.Equal(t, []string{"item"}, cls.Methods[1].Params)
			assert.False(t, cls.Methods[2].IsPublic)
		})
	}
}

func TestJavaScriptFunctions(t *testing.T) {
	for tier, p := range javascriptParsers() {
		t.Run(tier, func(t *testing.T) {
			funcs := p.ExtractFunctions(jsSample)
			require.Len(t, funcs, 2)

			byName := make(map[string]ParsedFunction)
			for _, fn := range funcs {
				byName[fn.Name] = fn
			}

			render, ok := byName["render"]
			require.True(t, ok)
			assert.True(t, render.IsPublic, "exported function")
			assert.Equal(t, []string{"props"}, render.Params)

			total, ok := byName["total"]
			require.True(t, ok)
			assert.False(t, total.IsPublic)
			assert.Equal(t, []string{"items"}, total.Params)
			assert.Contains(t, total.Signature, "=>")
		})
	}
}

func TestJavaScriptParseIdempotent(t *testing.T) {
	for tier, p := range javascriptParsers() {
		t.Run(tier, func(t *testing.T) {
			first, err := p.Parse("cart.js", jsSample)
			require.NoError(t, err)
			second, err := p.Parse("cart.js", jsSample)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestJavaScriptImportsIgnoreComments(t *testing.T) {
	content := "// import fake from 'fake';\nimport real from 'real';\n"
	for tier, p := range javascriptParsers() {
		t.Run(tier, func(t *testing.T) {
			imports := p.ExtractImports(content)
			require.Len(t, imports, 1)
			assert.Equal(t, "real", imports[0].Module)
		})
	}
}

func TestJavaScriptValidateSyntax(t *testing.T) {
	p := NewJavaScriptParser(false)

	assert.Empty(t, p.ValidateSyntax("function ok() { return 1; }\n"))
	assert.NotEmpty(t, p.ValidateSyntax("function broken() {\n"))
}
