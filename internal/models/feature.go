package models

// Feature is a taggable listing attribute such as "Bills included"
type Feature struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
}

func (Feature) TableName() string {
	return "features"
}

// PropertyFeature links a property to a feature
type PropertyFeature struct {
	PropertyID uint     `gorm:"primaryKey;autoIncrement:false" json:"property_id"`
	FeatureID  uint     `gorm:"primaryKey;autoIncrement:false;index" json:"feature_id"`
	Feature    *Feature `gorm:"foreignKey:FeatureID" json:"feature,omitempty"`
}

func (PropertyFeature) TableName() string {
	return "property_features"
}
