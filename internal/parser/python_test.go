package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pySample = `"""Order processing helpers."""
import os
import numpy as np
from typing import List, Optional
from .models import Order


class OrderBook:
    """Tracks open orders."""

    def __init__(self, depth):
        self.depth = depth

    def add(self, order):
        """Add one order."""
        return order

    def _rebalance(self):
        pass


def main():
    pass


def _helper(count: int) -> int:
    return count * 2
`

// Both extraction tiers must satisfy the same contract on the sample.
func pythonParsers() map[string]*PythonParser {
	return map[string]*PythonParser{
		"grammar":  NewPythonParser(true),
		"fallback": NewPythonParser(false),
	}
}

func TestPythonImports(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			imports := p.ExtractImports(pySample)
			require.Len(t, imports, 4)

			byModule := make(map[string]ParsedImport)
			for _, imp := range imports {
				byModule[imp.Module] = imp
			}

			assert.Equal(t, []string{"os"}, byModule["os"].Items)
			assert.Equal(t, "np", byModule["numpy"].Alias)
			assert.ElementsMatch(t, []string{"List", "Optional"}, byModule["typing"].Items)
			assert.False(t, byModule["typing"].IsRelative)

			rel := byModule["models"]
			assert.True(t, rel.IsRelative)
			assert.Equal(t, []string{"Order"}, rel.Items)
		})
	}
}

func TestPythonClasses(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			classes := p.ExtractClasses(pySample)
			require.Len(t, classes, 1)

			cls := classes[0]
			assert.Equal(t, "OrderBook", cls.Name)
			assert.True(t, cls.IsPublic)
			assert.Equal(t, 8, cls.LineStart)

			require.Len(t, cls.Methods, 3)
			assert.Equal(t, "__init__", cls.Methods[0].Name)
			assert.False(t, cls.Methods[0].IsPublic)
			assert.Equal(t, []string{"depth"}, cls.Methods[0].Params, "self filtered")

			add := cls.Methods[1]
			assert.Equal(t, "add", add.Name)
			assert.True(t, add.IsPublic)
			assert.Contains(t, add.Docstring, "Add one order")

			assert.False(t, cls.Methods[2].IsPublic)
		})
	}
}

func TestPythonFunctions(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			funcs := p.ExtractFunctions(pySample)
			require.Len(t, funcs, 2, "methods must not leak into module-level functions")

			assert.Equal(t, "main", funcs[0].Name)
			assert.True(t, funcs[0].IsPublic)

			helper := funcs[1]
			assert.Equal(t, "_helper", helper.Name)
			assert.False(t, helper.IsPublic)
			assert.Equal(t, []string{"count"}, helper.Params)
			assert.Equal(t, "int", helper.ReturnType)
		})
	}
}

func TestPythonParse(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			parsed, err := p.Parse("orders.py", pySample)
			require.NoError(t, err)

			assert.Equal(t, "orders.py", parsed.FilePath)
			assert.Equal(t, LanguagePython, parsed.Language)
			assert.Equal(t, countLines(pySample), parsed.TotalLines)
			assert.Contains(t, parsed.Docstring, "Order processing helpers")
			assert.Empty(t, parsed.Errors)
		})
	}
}

func TestPythonParseIdempotent(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			first, err := p.Parse("orders.py", pySample)
			require.NoError(t, err)
			second, err := p.Parse("orders.py", pySample)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestPythonValidateSyntax(t *testing.T) {
	p := NewPythonParser(false)

	assert.Empty(t, p.ValidateSyntax("def ok():\n    pass\n"))

	errs := p.ValidateSyntax("def broken(:\n    pass\n")
	assert.NotEmpty(t, errs)

	t.Run("delimiters inside literals and comments", func(t *testing.T) {
		assert.Empty(t, p.ValidateSyntax("path = \"data(raw\"\n"))
		assert.Empty(t, p.ValidateSyntax("x = 1  # close ) later\n"))
	})
}

func TestPythonEmptyContent(t *testing.T) {
	for tier, p := range pythonParsers() {
		t.Run(tier, func(t *testing.T) {
			parsed, err := p.Parse("empty.py", "")
			require.NoError(t, err)
			assert.Empty(t, parsed.Imports)
			assert.Empty(t, parsed.Classes)
			assert.Empty(t, parsed.Functions)
		})
	}
}
