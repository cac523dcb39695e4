package receipt

import (
	"strconv"
	"strings"
)

var (
	smallNumbers = []string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tens   = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
	scales = []string{"", "thousand", "million", "billion", "trillion", "quadrillion"}
)

// AmountInWords renders an amount in kobo as Nigerian currency words,
// e.g. 125050 -> "One thousand two hundred and fifty naira, fifty kobo".
func AmountInWords(kobo int64) string {
	if kobo < 0 {
		kobo = -kobo
	}
	naira, rest := kobo/100, kobo%100

	text := numberToWords(naira) + " naira"
	if rest > 0 {
		text += ", " + numberToWords(rest) + " kobo"
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

// FormatAmount renders kobo as a naira figure with thousands separators ("1,250.50")
func FormatAmount(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign, kobo = "-", -kobo
	}
	whole := strconv.FormatInt(kobo/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	frac := kobo % 100
	return sign + b.String() + "." + string(rune('0'+frac/10)) + string(rune('0'+frac%10))
}

func numberToWords(n int64) string {
	if n == 0 {
		return smallNumbers[0]
	}

	var groups []int64
	for n > 0 {
		groups = append(groups, n%1000)
		n /= 1000
	}

	var parts []string
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		words := groupToWords(g)
		// British usage: "one thousand and five"
		if i == 0 && g < 100 && len(groups) > 1 {
			words = "and " + words
		}
		if scales[i] != "" {
			words += " " + scales[i]
		}
		parts = append(parts, words)
	}
	return strings.Join(parts, " ")
}

func groupToWords(n int64) string {
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, smallNumbers[h]+" hundred")
		n %= 100
		if n > 0 {
			parts = append(parts, "and")
		}
	}
	switch {
	case n >= 20:
		w := tens[n/10]
		if n%10 > 0 {
			w += "-" + smallNumbers[n%10]
		}
		parts = append(parts, w)
	case n > 0:
		parts = append(parts, smallNumbers[n])
	}
	return strings.Join(parts, " ")
}
