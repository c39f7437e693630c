package geo

import "math"

// EarthRadiusKM is the mean radius used by DistanceKM.
const EarthRadiusKM = 6372.8

// DistanceKM returns the great-circle distance between two points using the haversine formula.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	phi1 := radians(lat1)
	phi2 := radians(lat2)

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKM * c
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// UKBounds roughly covers Great Britain and Northern Ireland.
var UKBounds = Bounds{MinLat: 49.8774, MaxLat: 60.861838, MinLon: -11.712093, MaxLon: 2.108298}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
