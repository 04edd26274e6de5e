package domain

import "strings"

// HelpTopic is a short usage guide entry.
type HelpTopic struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

var helpTopics = []HelpTopic{
	{
		Name:  "overview",
		Title: "Bihar agricultural weather alerts",
		Body: "Generates crop-specific weather alerts for the 38 districts of Bihar. " +
			"Forecasts are matched against crop calendars and growth stages, then rendered " +
			"for SMS, WhatsApp, USSD, IVR and Telegram.",
	},
	{
		Name:  "districts",
		Title: "Districts",
		Body: "All 38 districts of Bihar are supported, from Araria to West Champaran. " +
			"District names are case-insensitive. Each district lists its primary, " +
			"secondary and specialty crops.",
	},
	{
		Name:  "crops",
		Title: "Crops",
		Body: "Crop calendars exist for rice and maize (Kharif), wheat and mustard (Rabi), " +
			"maize (Zaid) and sugarcane (annual). The growth stage is estimated from the " +
			"planting date, or from the usual sowing date when none is given.",
	},
	{
		Name:  "weather",
		Title: "Weather data",
		Body: "Forecasts cover 1 to 7 days and include daily minimum and maximum temperature, " +
			"rainfall, chance of rain, humidity, wind speed and a general condition.",
	},
	{
		Name:  "alerts",
		Title: "Alert levels",
		Body: "INFO means normal conditions. ADVISORY asks you to monitor conditions. " +
			"WARNING asks you to inspect fields within 24 hours. SEVERE also asks you to " +
			"contact the block agriculture extension officer.",
	},
	{
		Name:  "examples",
		Title: "Examples",
		Body: "Rice alert for Patna over 3 days: POST /api/v1/alerts " +
			`{"district":"Patna","crop":"rice","days":3,"channels":["sms","whatsapp"]}. ` +
			"District-wide alert: omit the crop. Crops for a district: GET /api/v1/districts/Gaya/crops.",
	},
}

// HelpTopics returns every help topic in display order.
func HelpTopics() []HelpTopic {
	return append([]HelpTopic(nil), helpTopics...)
}

// LookupHelp returns the named topic, or the overview and false when the name is unknown.
func LookupHelp(name string) (HelpTopic, bool) {
	for _, t := range helpTopics {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return helpTopics[0], false
}
