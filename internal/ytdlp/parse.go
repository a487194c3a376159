package ytdlp

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// progressLine is what a "[download]  12.5% of ..." line carries.
type progressLine struct {
	percentage float64
	total      int64
	estimate   bool
	downloaded int64

	speed    int64
	hasSpeed bool
	eta      time.Duration
	hasETA   bool

	fragIndex int
	fragCount int
}

func parseProgress(content string) (progressLine, bool) {
	var p progressLine

	fields := strings.Fields(content)
	if len(fields) == 0 {
		return p, false
	}

	value := fields[0]
	if !strings.HasSuffix(value, "%") {
		return p, false
	}

	pct, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
	if err != nil {
		return p, false
	}

	p.percentage = math.Max(0, math.Min(100, pct))

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "of":
			if i+1 < len(fields) && fields[i+1] == "~" {
				// yt-dlp pads estimates as "~  10.00MiB".
				p.estimate = true
				i++
			}
			if i+1 < len(fields) {
				p.estimate = p.estimate || strings.HasPrefix(fields[i+1], "~")
				p.total = parseSize(fields[i+1])
				i++
			}
		case "at":
			if i+1 < len(fields) {
				p.speed = parseSpeed(fields[i+1])
				p.hasSpeed = p.speed > 0
				i++
			}
		case "ETA":
			if i+1 < len(fields) {
				p.eta, p.hasETA = parseETA(fields[i+1])
				i++
			}
		case "(frag":
			if i+1 < len(fields) {
				p.fragIndex, p.fragCount = parseFragment(fields[i+1])
				i++
			}
		}
	}

	if p.total > 0 {
		p.downloaded = int64(p.percentage / 100 * float64(p.total))
	}

	return p, true
}

func parseSize(value string) int64 {
	cleaned := strings.Trim(value, "~,")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || strings.EqualFold(cleaned, "unknown") || strings.EqualFold(cleaned, "n/a") {
		return 0
	}

	var numPart, unitPart string
	for i, r := range cleaned {
		if (r < '0' || r > '9') && r != '.' {
			numPart = cleaned[:i]
			unitPart = cleaned[i:]

			break
		}
	}

	if numPart == "" && unitPart == "" {
		numPart = cleaned
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(strings.TrimSpace(unitPart)) {
	case "", "B":
		return int64(num)
	case "KIB":
		return int64(num * 1024)
	case "MIB":
		return int64(num * 1024 * 1024)
	case "GIB":
		return int64(num * 1024 * 1024 * 1024)
	case "TIB":
		return int64(num * 1024 * 1024 * 1024 * 1024)
	case "KB":
		return int64(num * 1000)
	case "MB":
		return int64(num * 1000 * 1000)
	case "GB":
		return int64(num * 1000 * 1000 * 1000)
	case "TB":
		return int64(num * 1000 * 1000 * 1000 * 1000)
	}

	return 0
}

func parseSpeed(value string) int64 {
	return parseSize(strings.TrimSuffix(value, "/s"))
}

// parseETA reads "SS", "MM:SS" or "HH:MM:SS". "Unknown" reports false.
func parseETA(value string) (time.Duration, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || strings.EqualFold(cleaned, "unknown") || strings.EqualFold(cleaned, "n/a") {
		return 0, false
	}

	parts := strings.Split(cleaned, ":")
	if len(parts) > 3 {
		return 0, false
	}

	var total time.Duration
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}

		total = total*60 + time.Duration(n)
	}

	return total * time.Second, true
}

// parseFragment reads the "3/40)" tail of a "(frag 3/40)" marker.
func parseFragment(value string) (index, count int) {
	cleaned := strings.TrimSuffix(value, ")")

	idx, cnt, ok := strings.Cut(cleaned, "/")
	if !ok {
		return 0, 0
	}

	index, err1 := strconv.Atoi(idx)
	count, err2 := strconv.Atoi(cnt)
	if err1 != nil || err2 != nil || index < 0 || count <= 0 {
		return 0, 0
	}

	return index, count
}
