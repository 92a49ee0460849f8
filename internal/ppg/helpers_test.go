package ppg_test

import "time"

var testStart = time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
