package utils

// Minimal server-side i18n for fixed keys. UI strings live in the frontend; the
// server provides only the blocking alerts and health message.

var translations = map[string]map[string]string{
	"th": {
		"health.ok":           "พร้อมใช้งาน",
		"catalog.unavailable": "เกิดข้อผิดพลาดในการเริ่มแบบทดสอบ กรุณาลองใหม่อีกครั้ง",
		"submit.failed":       "เกิดข้อผิดพลาดในการบันทึกข้อมูล กรุณาลองอีกครั้ง",
	},
	"en": {
		"health.ok":           "ok",
		"catalog.unavailable": "Could not start the survey. Please try again.",
		"submit.failed":       "Could not save your answers. Please try again.",
	},
}

// T returns the translated string for key in locale; falls back to Thai.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["th"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
