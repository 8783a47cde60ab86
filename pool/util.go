package pool

import "strconv"

func uintToStr(v uint64) string { return strconv.FormatUint(v, 10) }
func int64ToStr(v int64) string { return strconv.FormatInt(v, 10) }
