// Package domain models Atlantic hurricane track and impact data.
//
// # Track data
//
// Storm tracks come from the NOAA National Hurricane Center HURDAT2 "best
// track" files (https://www.nhc.noaa.gov/data/). The format interleaves two
// line shapes:
//
//	Header:  AL092022,            IAN,     47,
//	         basin+number+year id, storm name, entry count.
//	Data:    20220928, 1905, L, HU, 26.7N, 82.2W, 130, 940, ...
//	         date YYYYMMDD, time HHMM UTC, record identifier, system status,
//	         latitude, longitude, max sustained wind (kt), min pressure (mb),
//	         then wind radii fields that this system ignores.
//
// Coordinates carry a hemisphere suffix: "26.7N" and "82.2W" parse to
// 26.7 and -82.2 (south and west are negative). The record identifier "L"
// marks a landfall observation; it is the only flag the landfall filter
// inspects.
//
// Wind and pressure use the sentinels -99 and -999 for "not recorded".
// Those are distinct from zero and become missing during parsing.
//
// # Merge keys
//
// Economic-impact records name events "Hurricane Ian" or "Tropical Storm
// Nicole" while HURDAT2 names the same storms "IAN" and "NICOLE". The two
// are linked by a composite key of (normalized name, year): the storm-type
// prefix is stripped, remaining non-alphanumeric characters removed, and
// the result uppercased. Key equality is the only join predicate; no
// fuzzy matching is attempted, so naming divergence between the sources
// shows up as unmatched rows in the match report rather than being
// silently corrected.
package domain
