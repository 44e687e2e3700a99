package main

import (
	"errors"
	"io/fs"

	"github.com/oxhq/quarkmig/internal/config"
	"github.com/oxhq/quarkmig/internal/fixpoint"
	"github.com/oxhq/quarkmig/internal/lang/java"
	"github.com/oxhq/quarkmig/internal/lang/xml"
	"github.com/oxhq/quarkmig/internal/model"
	"github.com/oxhq/quarkmig/internal/recipe"
	"github.com/oxhq/quarkmig/internal/rules"
	"github.com/oxhq/quarkmig/internal/template"
)

// classify maps an error to the payload printed for it. Errors that
// already are a *model.CLIError keep their code.
func classify(err error) *model.CLIError {
	var ce *model.CLIError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, template.ErrSynthesis):
		return model.Wrap(model.ECSynthesis, "template synthesis failed", err)
	case errors.Is(err, fixpoint.ErrOscillation):
		return model.Wrap(model.ECOscillation, "rule did not converge", err)
	case errors.Is(err, java.ErrSyntax), errors.Is(err, xml.ErrMalformed), errors.Is(err, recipe.ErrUnsupportedFile):
		return model.Wrap(model.ECParse, "cannot parse source", err)
	case errors.Is(err, recipe.ErrIO), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return model.Wrap(model.ECIO, "file access failed", err)
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, rules.ErrUnknownRule), errors.Is(err, rules.ErrInvalidCatalog):
		return model.Wrap(model.ECConfig, "invalid configuration", err)
	}
	return model.Wrap(model.ECUnknown, "quarkmig failed", err)
}
