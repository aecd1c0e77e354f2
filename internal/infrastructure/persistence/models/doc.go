// Package models holds the GORM table mappings for the sync engine. Domain
// entities stay free of ORM tags; each model here knows how to convert to and
// from its domain counterpart, and the repositories only ever touch models.
//
// Layout:
//   - base.go: columns shared by every table (BaseModel)
//   - listing.go: listings, platform configs, sync log entries, notifications
package models
