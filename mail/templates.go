package mail

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer renders mail bodies with the django template engine
type TemplateRenderer struct {
	engine *django.Engine
}

// NewTemplateRenderer loads the embedded mail templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "mail templates")
	}
	return NewTemplateRendererFS(http.FS(sub))
}

// NewTemplateRendererFS loads templates with the .html extension from fsys
func NewTemplateRendererFS(fsys http.FileSystem) (*TemplateRenderer, error) {
	engine := django.NewFileSystem(fsys, ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load mail templates")
	}
	return &TemplateRenderer{engine: engine}, nil
}

// Render executes template name with data
func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "render mail template %s", name)
	}
	return buf.String(), nil
}
