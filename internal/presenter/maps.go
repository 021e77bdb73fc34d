// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/gypsy-status/internal/fields"
)

// FixIcons maps the fix status to the icon shown in front of the status text.
var FixIcons = map[fields.FixStatus]string{
	fields.FixInvalid: "⚠",
	fields.FixNone:    "○",
	fields.Fix2D:      "◐",
	fields.Fix3D:      "●",
}

// i18nVars maps the lower-case template labels to their translatable message IDs.
var i18nVars = map[string]localize.MsgID{
	"fix":         "Fix",
	"time":        "Time",
	"position":    "Position",
	"latitude":    "Latitude",
	"longitude":   "Longitude",
	"altitude":    "Altitude",
	"accuracy":    "Accuracy",
	"course":      "Course",
	"satellites":  "Satellites",
	"map":         "Map",
	"last update": "Last update",
}
