package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
)

// IndexRenderer produces the HTML of the index page.
type IndexRenderer interface {
	Render() (string, error)
}

// TemplateIndex renders index.html from a template directory. The file is
// parsed on every call so edits show up without a restart.
type TemplateIndex struct {
	Dir     string
	AppName string
}

type indexData struct {
	AppName string
	Routes  []string
}

func (t TemplateIndex) Render() (string, error) {
	tmpl, err := template.ParseFiles(filepath.Join(t.Dir, "index.html"))
	if err != nil {
		return "", fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, indexData{
		AppName: t.AppName,
		Routes:  []string{"/platforms", "/platformid", "/find", "/getdata", "/cover", "/purge"},
	})
	if err != nil {
		return "", fmt.Errorf("render index template: %w", err)
	}
	return buf.String(), nil
}
