package writer

import "strconv"

// FormatINR renders a rupee amount with two decimals.
func FormatINR(v float64) string {
	return "₹" + strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatVolume renders traded volume in Indian notation (Lakh, Crore).
func FormatVolume(v int64) string {
	f := float64(v)
	switch {
	case f >= 1e7:
		return strconv.FormatFloat(f/1e7, 'f', 2, 64) + "Cr"
	case f >= 1e5:
		return strconv.FormatFloat(f/1e5, 'f', 2, 64) + "L"
	case f >= 1e3:
		return strconv.FormatFloat(f/1e3, 'f', 2, 64) + "K"
	}
	return strconv.FormatInt(v, 10)
}
