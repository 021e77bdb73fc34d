// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/vorlif/humanize"
	"github.com/vorlif/spreak"

	"github.com/wneessen/gypsy-status/internal/config"
	"github.com/wneessen/gypsy-status/internal/display"
	"github.com/wneessen/gypsy-status/internal/i18n"
)

// OutputClass is the CSS class of every status bar output, followed by the fix status class.
const OutputClass = "gypsy-status"

// TemplateContext is the data the text, alt text and tooltip templates are executed with.
type TemplateContext struct {
	display.Snapshot

	FixIcon string
	Classes []string
}

type Presenter struct {
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer

	TextTemplate    *template.Template
	AltTextTemplate *template.Template
	TooltipTemplate *template.Template
}

func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	pres := &Presenter{
		localizer: loc,
		humanizer: i18n.NewHumanizer(loc),
	}

	var err error
	if pres.TextTemplate, err = pres.parse("text", conf.Templates.Text); err != nil {
		return nil, err
	}
	if pres.AltTextTemplate, err = pres.parse("alt_text", conf.Templates.AltText); err != nil {
		return nil, err
	}
	if pres.TooltipTemplate, err = pres.parse("tooltip", conf.Templates.Tooltip); err != nil {
		return nil, err
	}
	return pres, nil
}

// BuildContext prepares a display snapshot for the templates.
func (p *Presenter) BuildContext(snap display.Snapshot) TemplateContext {
	return TemplateContext{
		Snapshot: snap,
		FixIcon:  FixIcons[snap.FixStatus],
		Classes:  []string{OutputClass, snap.FixStatus.String()},
	}
}

// Render executes all templates and returns their output keyed by template name.
func (p *Presenter) Render(ctx TemplateContext) (map[string]string, error) {
	out := make(map[string]string, 3)
	for _, tpl := range []*template.Template{p.TextTemplate, p.AltTextTemplate, p.TooltipTemplate} {
		buf := bytes.NewBuffer(nil)
		if err := tpl.Execute(buf, ctx); err != nil {
			return nil, fmt.Errorf("failed to render %s template: %w", tpl.Name(), err)
		}
		out[tpl.Name()] = buf.String()
	}
	return out, nil
}

func (p *Presenter) parse(name, text string) (*template.Template, error) {
	tpl, err := template.New(name).Funcs(p.templateFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return tpl, nil
}
