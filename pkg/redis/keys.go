package redis

import "fmt"

// CourseRunDetailKey caches the catalog course-run detail response.
func CourseRunDetailKey(courseRunID string) string {
	return fmt.Sprintf("course_commerce:catalog:course_run:%s", courseRunID)
}

// CourseDetailKey caches the catalog parent-course detail response.
func CourseDetailKey(courseKey string) string {
	return fmt.Sprintf("course_commerce:catalog:course:%s", courseKey)
}

// PurchaseRateKey keys the purchase endpoint limiter by LMS user.
func PurchaseRateKey(lmsUserID int64) string {
	return fmt.Sprintf("course_commerce:rate_limit:purchase:user:%d", lmsUserID)
}

// PurchaseRateIPKey is the limiter fallback when no user id parses.
func PurchaseRateIPKey(ip string) string {
	return fmt.Sprintf("course_commerce:rate_limit:purchase:ip:%s", ip)
}
