// Package catalog provides the immutable OpenLink message catalog: the
// cross-language source of truth for element templates, argument types,
// response attributes, and short-response intents (§3, §9).
//
// The table below is the canonical in-process copy; testdata/catalog.v1.json
// at the repository root is the polyglot fixture other OpenLink SDKs
// conform to, and catalog_test.go checks the two stay in lockstep.
package catalog

import "openlink/internal/protocol"

var defaultCatalog = protocol.Catalog{
	"UM0": {
		Id: "UM0", Direction: protocol.Uplink, Template: "UNABLE",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"UM1": {
		Id: "UM1", Direction: protocol.Uplink, Template: "STANDBY",
		ResponseAttr: protocol.RespondNotRequired, Standby: true, Fans: true, AtnB1: true,
	},
	"UM2": {
		Id: "UM2", Direction: protocol.Uplink, Template: "REQUEST DEFERRED",
		ResponseAttr: protocol.RespondNotRequired, Standby: true, Fans: true, AtnB1: true,
	},
	"UM3": {
		Id: "UM3", Direction: protocol.Uplink, Template: "ROGER",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"UM4": {
		Id: "UM4", Direction: protocol.Uplink, Template: "AFFIRM",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"UM5": {
		Id: "UM5", Direction: protocol.Uplink, Template: "NEGATIVE",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"UM20": {
		Id: "UM20", Direction: protocol.Uplink, Template: "MAINTAIN [level]",
		ArgTypes: []protocol.ArgType{protocol.ArgLevel}, ResponseAttr: protocol.RespondWilcoUnable,
		ShortResponseIntents: []protocol.ShortResponseIntent{
			{Intent: "WILCO", Label: "WILCO", DownlinkId: "DM0"},
			{Intent: "UNABLE", Label: "UNABLE", DownlinkId: "DM1"},
			{Intent: "STANDBY", Label: "STANDBY", DownlinkId: "DM2"},
		},
		Fans: true, AtnB1: true,
	},
	"UM117": {
		Id: "UM117", Direction: protocol.Uplink, Template: "CONTACT [station] [frequency]",
		ArgTypes: []protocol.ArgType{protocol.ArgStation, protocol.ArgFrequency},
		ResponseAttr: protocol.RespondWilcoUnable, Fans: true, AtnB1: true,
	},
	"UM160": {
		Id: "UM160", Direction: protocol.Uplink, Template: "NEXT DATA AUTHORITY [station]",
		ArgTypes: []protocol.ArgType{protocol.ArgStation}, ResponseAttr: protocol.RespondNotRequired,
		Fans: true, AtnB1: true,
	},
	"UM161": {
		Id: "UM161", Direction: protocol.Uplink, Template: "END SERVICE",
		ResponseAttr: protocol.RespondRoger, Fans: true, AtnB1: true,
	},
	"UM227": {
		Id: "UM227", Direction: protocol.Uplink, Template: "LOGICAL ACKNOWLEDGEMENT",
		ResponseAttr: protocol.RespondNotRequired, AtnB1: true,
	},
	"DM0": {
		Id: "DM0", Direction: protocol.Downlink, Template: "WILCO",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM1": {
		Id: "DM1", Direction: protocol.Downlink, Template: "UNABLE",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM2": {
		Id: "DM2", Direction: protocol.Downlink, Template: "STANDBY",
		ResponseAttr: protocol.RespondNotRequired, Standby: true, Fans: true, AtnB1: true,
	},
	"DM3": {
		Id: "DM3", Direction: protocol.Downlink, Template: "ROGER",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM4": {
		Id: "DM4", Direction: protocol.Downlink, Template: "AFFIRM",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM5": {
		Id: "DM5", Direction: protocol.Downlink, Template: "NEGATIVE",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM9": {
		Id: "DM9", Direction: protocol.Downlink, Template: "REQUEST [level]",
		ArgTypes: []protocol.ArgType{protocol.ArgLevel}, ResponseAttr: protocol.RespondAffirmNegative,
		Fans: true, AtnB1: true,
	},
	"DM62": {
		Id: "DM62", Direction: protocol.Downlink, Template: "ERROR [text]",
		ArgTypes: []protocol.ArgType{protocol.ArgText}, ResponseAttr: protocol.RespondNotRequired,
		Closes: true, Fans: true, AtnB1: true,
	},
	"DM63": {
		Id: "DM63", Direction: protocol.Downlink, Template: "NOT CURRENT DATA AUTHORITY",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
	"DM89": {
		Id: "DM89", Direction: protocol.Downlink, Template: "MONITORING [station] [frequency]",
		ArgTypes: []protocol.ArgType{protocol.ArgStation, protocol.ArgFrequency},
		ResponseAttr: protocol.RespondNotRequired, Fans: true, AtnB1: true,
	},
	"DM100": {
		Id: "DM100", Direction: protocol.Downlink, Template: "LOGICAL ACKNOWLEDGEMENT",
		ResponseAttr: protocol.RespondNotRequired, AtnB1: true,
	},
	"DM107": {
		Id: "DM107", Direction: protocol.Downlink, Template: "NOT AUTHORIZED NEXT DATA AUTHORITY",
		ResponseAttr: protocol.RespondNotRequired, Closes: true, Fans: true, AtnB1: true,
	},
}

// Default returns the canonical OpenLink message catalog.
func Default() protocol.Catalog {
	return defaultCatalog
}
