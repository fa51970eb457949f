package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatThousands renders n with en-US grouping, e.g. 40000 → "40,000".
func FormatThousands(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDecimal renders f with en-US grouping and a fixed number of decimals.
func FormatDecimal(f float64, decimals int) string {
	return printer.Sprintf("%."+strconv.Itoa(decimals)+"f", f)
}

// FormatScore is the one-decimal score used in standings tables.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

// FormatPrice picks the decimals shown for an asset price.
func FormatPrice(price float64, symbol string) string {
	switch {
	case strings.EqualFold(symbol, "BTC") && price >= 1000:
		return FormatDecimal(price, 0)
	case price >= 1:
		return FormatDecimal(price, 2)
	case price >= 0.01:
		return FormatDecimal(price, 4)
	default:
		return FormatDecimal(price, 6)
	}
}

// FormatPercent renders a signed percentage: "+1.23%", "-0.50%".
func FormatPercent(v float64) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, v)
}

// DirectionArrow is ↗ for a non-negative change and ↘ otherwise.
func DirectionArrow(change float64) string {
	if change >= 0 {
		return "↗"
	}
	return "↘"
}

// ShortAddress abbreviates a wallet address to 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Ordinal renders 1 → "1st", 12 → "12th", 23 → "23rd".
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// Medal returns the podium emoji for a position.
func Medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return "🏅"
	}
}

// ShortDate is the UTC "Jan 2" form used in social posts.
func ShortDate(t time.Time) string {
	return t.UTC().Format("Jan 2")
}

// LongDate is the UTC "Jan 2, 2006" form used in messaging posts.
func LongDate(t time.Time) string {
	if t.IsZero() {
		return "TBA"
	}
	return t.UTC().Format("Jan 2, 2006")
}

// Plural appends "s" to word unless n is 1.
func Plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
