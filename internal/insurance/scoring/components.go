package scoring

import (
	"math"
	"time"

	"github.com/securepremium/securepremium/internal/insurance/model"
)

// fingerprintStabilityScore rewards fingerprints that stay constant
// across interactions. Devices with fewer than three interactions have
// no track record and score neutral.
func fingerprintStabilityScore(p *model.DeviceProfile) float64 {
	if p.InteractionCount < 3 {
		return 0.5
	}
	window := p.InteractionCount
	if window > 20 {
		window = 20
	}
	changes := p.FingerprintChanges
	if changes > window {
		changes = window
	}
	return model.ClampScore(1.0 - float64(changes)/float64(window))
}

// behavioralConsistencyScore compares the latest usage sample to the
// established baseline. No baseline means no evidence either way.
func behavioralConsistencyScore(p *model.DeviceProfile) float64 {
	if p.Baseline == nil {
		return 0.5
	}
	if p.LastSample == nil {
		return 0.7
	}

	type pair struct {
		current float64
		stat    model.BaselineStat
	}
	pairs := []pair{
		{p.LastSample.CPUUsage, p.Baseline.CPUUsage},
		{p.LastSample.MemoryUsage, p.Baseline.MemoryUsage},
		{p.LastSample.NetworkActivity, p.Baseline.NetworkActivity},
		{p.LastSample.DiskActivity, p.Baseline.DiskActivity},
	}

	total := 0.0
	compared := 0
	for _, q := range pairs {
		if q.stat.StdDev <= 0 {
			continue
		}
		z := math.Abs((q.current - q.stat.Mean) / q.stat.StdDev)
		total += math.Min(z/3.0, 1.0)
		compared++
	}
	if compared == 0 {
		return 0.7
	}
	return model.ClampScore(1.0 - total/float64(compared))
}

// severityImpact is the per-event penalty weight used by securityScore.
func severityImpact(sev model.Severity) float64 {
	switch sev {
	case model.SeverityCritical:
		return 0.9
	case model.SeverityHigh:
		return 0.7
	case model.SeverityMedium:
		return 0.5
	default:
		return 0.2
	}
}

// securityScore decreases monotonically with the recency-weighted sum
// of incident severities. Events older than 90 days no longer weigh in;
// the score floors at 0.
func securityScore(p *model.DeviceProfile, now time.Time) float64 {
	if len(p.SecurityEvents) == 0 {
		return 1.0
	}

	penalty := 0.0
	for _, ev := range p.SecurityEvents {
		ageDays := now.Sub(ev.Timestamp).Hours() / 24.0
		recency := math.Max(0.0, 1.0-ageDays/90.0)
		penalty += severityImpact(ev.Severity) * recency
	}
	return model.ClampScore(1.0 - penalty)
}

// longevityScore blends device age, recent activity, and interaction
// volume. Older, consistently active devices score higher.
func longevityScore(p *model.DeviceProfile, now time.Time) float64 {
	ageDays := p.AgeDays(now)

	var ageScore float64
	switch {
	case ageDays < 7:
		ageScore = 0.2
	case ageDays < 30:
		ageScore = 0.5
	case ageDays < 90:
		ageScore = 0.7
	case ageDays < 365:
		ageScore = 0.85
	default:
		ageScore = 0.95
	}

	idleHours := p.LastActivityHours(now)
	var activityScore float64
	switch {
	case idleHours < 24:
		activityScore = 1.0
	case idleHours < 168:
		activityScore = 0.8
	case idleHours < 720:
		activityScore = 0.5
	default:
		activityScore = 0.2
	}

	consistency := math.Min(float64(p.InteractionCount)/100.0, 1.0)

	return model.ClampScore(ageScore*0.5 + activityScore*0.3 + consistency*0.2)
}

// geographicPatternScore penalizes location histories whose consecutive
// observations imply impossible travel speeds.
func geographicPatternScore(p *model.DeviceProfile) float64 {
	if len(p.Locations) == 0 {
		return 0.5
	}
	if len(p.Locations) == 1 {
		return 0.9
	}

	// Only the last 10 observations matter.
	locations := p.Locations
	if len(locations) > 10 {
		locations = locations[len(locations)-10:]
	}

	cities := make(map[string]bool)
	for _, loc := range locations {
		if loc.City != "" {
			cities[loc.City] = true
		}
	}

	switch {
	case len(cities) == 1:
		return 0.95
	case len(cities) <= 3 && len(cities) > 0:
		return 0.75
	}

	if impossibleTravel(locations) {
		return 0.3
	}
	return 0.6
}

// impossibleTravel reports whether any consecutive pair of observations
// would require exceeding the maximum plausible travel speed.
func impossibleTravel(locations []model.GeoObservation) bool {
	for i := 1; i < len(locations); i++ {
		prev, curr := locations[i-1], locations[i]

		hours := math.Abs(curr.Timestamp.Sub(prev.Timestamp).Hours())
		if hours == 0 {
			continue
		}
		km := haversineKm(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
		if km/hours > maxTravelSpeedKmh {
			return true
		}
	}
	return false
}

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}
