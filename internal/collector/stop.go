package collector

import "codeberg.org/mutker/weatheragent/internal/session"

// stopReason evaluates the stop condition against the committed session.
func (c Config) stopReason(s *session.Session) (session.StopReason, bool) {
	var (
		enabled int
		met     []session.StopReason
	)

	if c.TargetObservations > 0 {
		enabled++
		if s.Len() >= c.TargetObservations {
			met = append(met, session.StopTargetObservations)
		}
	}

	if c.MinPerCity > 0 {
		enabled++
		if s.MinPerCity() >= c.MinPerCity {
			met = append(met, session.StopMinPerCity)
		}
	}

	if c.MinQuality > 0 {
		enabled++
		if a, ok := s.Latest(); ok && a.Score.Aggregate >= c.MinQuality {
			met = append(met, session.StopMinQuality)
		}
	}

	switch {
	case len(met) == 0:
	case c.Mode == StopAny:
		return met[0], true
	case len(met) == enabled && enabled == 1:
		return met[0], true
	case len(met) == enabled:
		return session.StopSufficientData, true
	}

	if s.Cycles() >= c.MaxCycles {
		return session.StopMaxCycles, true
	}

	return "", false
}
