package render

import (
	"fmt"
	"strings"
)

// FormatINR renders an amount in paise as rupees with Indian digit
// grouping, e.g. 1234567890 -> "₹1,23,45,678.90". Output depends only on
// the input value, so rendered documents hash deterministically.
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	rupees := paise / 100
	frac := paise % 100
	return fmt.Sprintf("%s₹%s.%02d", sign, groupIndian(rupees), frac)
}

// groupIndian applies the 2,2,3 grouping: the last three digits form one
// group, every group before it has two digits.
func groupIndian(n int64) string {
	digits := fmt.Sprintf("%d", n)
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",") + "," + tail
}

var onesWords = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tensWords = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// AmountInWords spells an amount in paise the way Indian commercial
// documents do: rupees in the lakh/crore system, then paise.
func AmountInWords(paise int64) string {
	if paise < 0 {
		return "Minus " + AmountInWords(-paise)
	}
	rupees := paise / 100
	frac := paise % 100

	var b strings.Builder
	b.WriteString("Rupees ")
	if rupees == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(numberInWords(rupees))
	}
	if frac > 0 {
		b.WriteString(" and ")
		b.WriteString(numberInWords(frac))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// numberInWords handles the Indian positional system. Crore recurses so
// arbitrarily large totals (crore of crores) stay correct.
func numberInWords(n int64) string {
	switch {
	case n >= 1_00_00_000:
		return joinWords(numberInWords(n/1_00_00_000)+" Crore", numberInWords(n%1_00_00_000))
	case n >= 1_00_000:
		return joinWords(belowHundred(n/1_00_000)+" Lakh", numberInWords(n%1_00_000))
	case n >= 1_000:
		return joinWords(belowHundred(n/1_000)+" Thousand", numberInWords(n%1_000))
	case n >= 100:
		return joinWords(onesWords[n/100]+" Hundred", numberInWords(n%100))
	default:
		return belowHundred(n)
	}
}

func belowHundred(n int64) string {
	switch {
	case n == 0:
		return ""
	case n < 20:
		return onesWords[n]
	default:
		return joinWords(tensWords[n/10], onesWords[n%10])
	}
}

func joinWords(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}
