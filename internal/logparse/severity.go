package logparse

import (
	"strconv"
	"strings"
)

// NormalizeLevel converts Windows level display names and common short forms
// to consistent all caps short forms.
func NormalizeLevel(level string) string {
	normalized := strings.ToUpper(strings.TrimSpace(level))

	switch normalized {
	case "TRACE", "TRAC", "TRC":
		return "TRACE"
	case "VERBOSE", "DEBUG", "DEBU", "DBG", "DEB":
		return "DEBUG"
	case "INFORMATION", "INFO", "INF", "INFORMATIONAL":
		return "INFO"
	case "WARNING", "WARN", "WRNG", "WRN":
		return "WARN"
	case "ERROR", "ERR", "ERRO":
		return "ERROR"
	case "CRITICAL", "CRIT", "CRT", "FATAL", "FATL", "FTL":
		return "FATAL"
	case "":
		return "INFO"
	default:
		if n, err := strconv.Atoi(normalized); err == nil {
			return LevelFromNumber(n)
		}
		if len(normalized) >= 4 {
			switch normalized[:4] {
			case "INFO":
				return "INFO"
			case "WARN":
				return "WARN"
			case "ERRO":
				return "ERROR"
			case "DEBU", "VERB":
				return "DEBUG"
			case "TRAC":
				return "TRACE"
			case "FATA", "CRIT":
				return "FATAL"
			}
		}
		return "INFO"
	}
}

// LevelFromNumber converts Windows event numeric levels to strings.
// 0 (LogAlways) is reported as INFO.
func LevelFromNumber(level int) string {
	switch level {
	case 1:
		return "FATAL"
	case 2:
		return "ERROR"
	case 3:
		return "WARN"
	case 5:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// LevelRank orders normalized levels from least to most severe.
func LevelRank(level string) int {
	switch level {
	case "TRACE":
		return 0
	case "DEBUG":
		return 1
	case "INFO":
		return 2
	case "WARN":
		return 3
	case "ERROR":
		return 4
	case "FATAL":
		return 5
	default:
		return 2
	}
}
