// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/vorlif/humanize"

	"github.com/wneessen/gypsy-status/internal/vartype"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"humanTime":     p.humanTime,
		"floatFormat":   p.floatFormat,
		"optFormat":     p.optFormat,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	if raw, ok := i18nVars[strings.ToLower(val)]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

// humanTime returns a natural "x minutes ago" text, or the localized unknown text for the
// zero time.
func (p *Presenter) humanTime(val time.Time) string {
	if val.IsZero() {
		return p.localizer.Get(vartype.Unknown)
	}
	return p.humanizer.NaturalTime(val)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// optFormat formats an optional value with floatFormat, or returns the localized unknown text.
func (p *Presenter) optFormat(val vartype.VarFloat64, precision int) string {
	if !val.IsSet() {
		return p.localizer.Get(vartype.Unknown)
	}
	return p.floatFormat(val.Value(), precision)
}
