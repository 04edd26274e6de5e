// Package domain models crop-weather alerts for the districts of Bihar.
//
// # Seasons
//
// Indian agriculture runs on three cropping seasons. The classifier uses the
// month of a date only:
//
//	Kharif (monsoon):   June - October
//	Rabi (winter):      November - March
//	Zaid (summer):      April - May
//
// Windows are checked in the order above, so a district that overrides them
// with overlapping ranges still classifies deterministically.
//
// # Crop calendars
//
// Each supported crop has a stage table of half-open day ranges after
// planting, e.g. rice:
//
//	Nursery/Seedling  0-20
//	Transplanting    20-30
//	...
//	Harvesting      115-120
//
// Stages must start at day 0 and cover the crop duration without gaps. When
// no planting date is supplied the most recent nominal sowing date whose cycle
// contains the first forecast day is used (rice: 15 June).
//
// # Weather normalization
//
// Provider values are converted to °C, mm and km/h. Conditions come from WMO
// 4677 weather interpretation codes (the codes Open-Meteo reports):
//
//	0-1 clear | 2-3 cloudy | 45,48 fog | 51-57 drizzle
//	61,63,66,80,81 rain | 65,67,82 heavy rain | 71-86 snow | 95-99 thunderstorm
//
// # Severity
//
// Alerts use a four-level scale. Every rule carries Advisory, Warning or
// Severe; Info is reserved for windows in which no rule matched. The alert's
// severity is the maximum over all matches on all days, and action items are
// derived from it alone:
//
//	Severe   -> notify extension officer, inspect fields, monitor
//	Warning  -> inspect fields within 24 hours, monitor
//	Advisory -> monitor conditions
//	Info     -> none
//
// # ID Generation
//
// Alert IDs are UUIDv5 (SHA-1) values derived from district|crop|first day|
// generation time. Re-composing with a frozen clock yields the same ID, which
// keeps fixtures and Kafka keys stable. See [alertID].
package domain
