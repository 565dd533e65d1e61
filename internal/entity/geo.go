package entity

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

const earthRadiusKm = 6371.0

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// "Namur (50.4674,4.8720)"
var coordinatesSuffix = regexp.MustCompile(`\(\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)\s*$`)

// ParseCoordinates извлекает координаты из суффикса "(lat,lon)" в строке местоположения
func ParseCoordinates(location string) (Coordinates, bool) {
	m := coordinatesSuffix.FindStringSubmatch(location)
	if m == nil {
		return Coordinates{}, false
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Coordinates{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinates{}, false
	}

	return Coordinates{Latitude: lat, Longitude: lon}, true
}

// DistanceKm - расстояние по формуле гаверсинуса
func DistanceKm(a, b Coordinates) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// SortByDistance упорядочивает задачи по удаленности от origin;
// задачи без координат в конце, в исходном порядке
func SortByDistance(tasks []Task, origin Coordinates) {
	dist := make(map[uuid.UUID]float64, len(tasks))
	for i := range tasks {
		d := math.Inf(1)
		if c, ok := tasks[i].Coordinates(); ok {
			d = DistanceKm(origin, c)
		}
		dist[tasks[i].ID] = d
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return dist[tasks[i].ID] < dist[tasks[j].ID]
	})
}
