package kakao

// CategoryCode is a Kakao Local category group code.
type CategoryCode string

const (
	CategoryMart             CategoryCode = "MT1"
	CategoryConvenienceStore CategoryCode = "CS2"
	CategorySubway           CategoryCode = "SW8"
	CategoryBank             CategoryCode = "BK9"
	CategoryHospital         CategoryCode = "HP8"
	CategoryPharmacy         CategoryCode = "PM9"
)

var categoryLabels = map[CategoryCode]string{
	CategoryMart:             "대형마트",
	CategoryConvenienceStore: "편의점",
	CategorySubway:           "지하철역",
	CategoryBank:             "은행",
	CategoryHospital:         "병원",
	CategoryPharmacy:         "약국",
}

// Label returns the display name for a category code, or the code itself for
// unknown codes.
func (c CategoryCode) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}
