// Package archive implements the versioned export/import protocol: the
// whole dataset serialized to a zip bundle of tabular files, raw
// attachment bytes and a manifest, and restored from one with counter
// recomputation and UUID preservation.
package archive

import "errors"

// ErrArchiveInvalid reports a missing required archive member or an
// unrecognized format version.
var ErrArchiveInvalid = errors.New("invalid archive")

// FormatVersion is the archive format version produced by export.
const FormatVersion = "2"

// compatibleVersions lists the format versions import accepts, oldest
// first. Version 1 predates entity UUIDs; the replay routine mints missing
// ones.
var compatibleVersions = map[string]bool{
	"1": true,
	"2": true,
}

const (
	manifestName = "manifest.json"
	imagesDir    = "images/"

	locationsTable  = "locations.csv"
	categoriesTable = "categories.csv"
	ownersTable     = "owners.csv"
	itemsTable      = "items.csv"
	imagesTable     = "images.csv"
)

// Manifest is the archive's metadata record.
type Manifest struct {
	Version    string `json:"version"`
	ExportedAt string `json:"exported_at"`
	Source     string `json:"source"`
}

// manifestSource identifies archives produced by this implementation.
const manifestSource = "inventar"

// Fixed column orders; changing these breaks bit-compatibility with
// archives produced by other implementations.
var (
	entityColumns = []string{"id", "uuid", "name", "description", "created_at", "updated_at"}

	itemColumns = []string{
		"id", "uuid", "name", "description",
		"location_id", "category_id", "price", "owner_id",
		"image_id", "image_uuid", "image_archive_filename", "image_original_filename",
		"created_at", "updated_at",
	}

	imageIndexColumns = []string{"image_id", "uuid", "image_mimetype", "image_filename", "created_at"}
)
