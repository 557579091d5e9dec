package models

// Section is one of the fixed FABLAB departments.
type Section string

const (
	SectionElectronics Section = "Electronics & Programming"
	SectionCNCLaser    Section = "CNC Laser"
	SectionCNCWood     Section = "CNC Wood"
	Section3D          Section = "3D"
	SectionRobotics    Section = "Robotics & AI"
	SectionKidsClub    Section = "Kid's Club"
	SectionVinyl       Section = "Vinyl Cutting"
)

// AllSections lists the sections in display order.
var AllSections = []Section{
	SectionElectronics,
	SectionCNCLaser,
	SectionCNCWood,
	Section3D,
	SectionRobotics,
	SectionKidsClub,
	SectionVinyl,
}

var sectionNamesAr = map[Section]string{
	SectionElectronics: "الإلكترونيات والبرمجة",
	SectionCNCLaser:    "الليزر CNC",
	SectionCNCWood:     "الخشب CNC",
	Section3D:          "الطباعة ثلاثية الأبعاد",
	SectionRobotics:    "الروبوتات والذكاء الاصطناعي",
	SectionKidsClub:    "نادي الأطفال",
	SectionVinyl:       "قص الفينيل",
}

// IsValid reports whether s is one of the known sections.
func (s Section) IsValid() bool {
	_, ok := sectionNamesAr[s]
	return ok
}

// NameAr returns the Arabic display name.
func (s Section) NameAr() string {
	return sectionNamesAr[s]
}
