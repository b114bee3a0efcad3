package answer

import (
	"fmt"
	"strings"

	"github.com/caspianlab/georag/internal/domain"
	"github.com/caspianlab/georag/internal/tabql"
)

// infoColumns, в порядке приоритета, описывают точку на карте.
var infoColumns = []string{"layer_name", "Регион", "Свита", "Пласт", MatchedFeatureColumn}

// ExtractCoordinates pulls validated map points out of a result table. A row
// contributes a point when both lon and lat parse into WGS84 bounds. Array
// encoded cells like "[44.3, 48.0]" take the first element as longitude and
// the last as latitude.
func ExtractCoordinates(res *tabql.Result) []domain.Coordinate {
	if res == nil || len(res.Rows) == 0 {
		return nil
	}
	lonIdx, latIdx := -1, -1
	for i, c := range res.Columns {
		switch c {
		case "lon":
			lonIdx = i
		case "lat":
			latIdx = i
		}
	}
	if lonIdx < 0 || latIdx < 0 {
		return nil
	}

	var coords []domain.Coordinate
	for n, row := range res.Rows {
		lon, ok := domain.ParseCoordinate(row[lonIdx], false)
		if !ok {
			continue
		}
		lat, ok := domain.ParseCoordinate(row[latIdx], true)
		if !ok {
			continue
		}
		if !domain.ValidLonLat(lon, lat) {
			continue
		}
		coords = append(coords, domain.Coordinate{
			Lon:  lon,
			Lat:  lat,
			Info: rowInfo(res, row, n),
		})
	}
	return coords
}

// rowInfo builds a human-readable point label from known descriptive columns.
func rowInfo(res *tabql.Result, row []any, n int) string {
	var parts []string
	for _, name := range infoColumns {
		for i, c := range res.Columns {
			if c != name || row[i] == nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", name, cellText(row[i])))
			break
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Запись %d", n+1)
	}
	return strings.Join(parts, ", ")
}
