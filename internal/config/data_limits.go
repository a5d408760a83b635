package config

// Catalog ingestion caps. List fields beyond these lengths are truncated at
// load time to bound generation context size and rendering cost.
const (
	// MaxClassHours caps the class_hours list per course.
	MaxClassHours = 3

	// MaxDaySchedule caps the day_schedule list per course.
	MaxDaySchedule = 8

	// MaxLocalities caps the localities list per course.
	MaxLocalities = 12

	// MaxAddresses caps the addresses list per course.
	MaxAddresses = 8

	// MaxOtherRequirements caps the free-text requirements list per course.
	MaxOtherRequirements = 10

	// MaxMaterialsPerList caps each materials list (student- and course-provided).
	MaxMaterialsPerList = 30

	// MaxFieldLength caps every free-text catalog field after escaping.
	MaxFieldLength = 2000

	// MaxTitleLength caps the course title.
	MaxTitleLength = 200
)

// Chat-pipeline limits.
const (
	// MaxSessionHistory is the per-session sliding window: 3 turn pairs.
	MaxSessionHistory = 6

	// MaxListingEntries caps topic and locality listings.
	MaxListingEntries = 5

	// MaxMessageLength caps the inbound chat message.
	MaxMessageLength = 1000
)
