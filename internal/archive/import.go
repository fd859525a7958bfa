package archive

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/tabular"
)

// Summary reports a completed import: per-entity replay counts and any
// row-level parse warnings.
type Summary struct {
	Locations  int
	Categories int
	Owners     int
	Items      int
	Images     int
	Warnings   []string
}

// Import validates and replays an archive into the store:
//
//	ValidateArchive → ClearStore → ParseTables → RecomputeCounters → ReplayRecords
//
// An unrecognized format version or missing archive member fails before
// any mutation. A failure in a later step leaves the store in whatever
// cleared/partially-replayed state that step produced; there is no
// pipeline-wide rollback. Each item and its attachment are written in one
// transaction, so a mid-replay failure never leaves an item with a
// dangling attachment reference.
func Import(ctx context.Context, sqldb *sql.DB, r io.ReaderAt, size int64) (*Summary, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveInvalid, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	// Version dispatch precedes everything else.
	manifest, err := readManifest(files)
	if err != nil {
		return nil, err
	}
	if !compatibleVersions[manifest.Version] {
		return nil, fmt.Errorf("%w: unrecognized format version %q", ErrArchiveInvalid, manifest.Version)
	}

	return replay(ctx, sqldb, files)
}

func readManifest(files map[string]*zip.File) (*Manifest, error) {
	f, ok := files[manifestName]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrArchiveInvalid, manifestName)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrArchiveInvalid, manifestName, err)
	}
	defer rc.Close()

	m := &Manifest{}
	if err := json.NewDecoder(rc).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrArchiveInvalid, manifestName, err)
	}
	return m, nil
}

// replay handles all compatible format versions; older versions differ
// only in fields the row decoders default tolerantly (missing entity UUIDs
// are minted fresh).
func replay(ctx context.Context, sqldb *sql.DB, files map[string]*zip.File) (*Summary, error) {
	sum := &Summary{}

	// ValidateArchive: every required table must be present before any
	// mutation happens.
	required := []string{locationsTable, categoriesTable, ownersTable, itemsTable, imagesTable}
	for _, name := range required {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrArchiveInvalid, name)
		}
	}

	// ClearStore: wipe collections and attachments, counters untouched.
	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		for _, collection := range kv.Collections {
			if err := kv.Clear(ctx, tx, collection); err != nil {
				return err
			}
		}
		return store.ClearAttachments(ctx, tx)
	})
	if err != nil {
		return nil, fmt.Errorf("clearing store: %w", err)
	}

	// ParseTables.
	tables := make(map[string]tabular.Table, len(required))
	for _, name := range required {
		t, warnings, err := parseTable(files[name])
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		for _, w := range warnings {
			sum.Warnings = append(sum.Warnings, name+": "+w)
		}
		tables[name] = t
	}

	// RecomputeCounters: next_id = max(observed ids, 0) + 1 so replayed
	// records can never collide even with sparse or unordered source ids.
	counters := map[string]string{
		kv.Locations:  locationsTable,
		kv.Categories: categoriesTable,
		kv.Owners:     ownersTable,
		kv.Items:      itemsTable,
	}
	err = db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		for collection, table := range counters {
			if err := store.ResetCounter(ctx, tx, collection, maxID(tables[table])+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recomputing counters: %w", err)
	}

	// ReplayRecords: reference entities first, then items.
	entityTables := []struct {
		collection string
		table      string
		count      *int
	}{
		{kv.Locations, locationsTable, &sum.Locations},
		{kv.Categories, categoriesTable, &sum.Categories},
		{kv.Owners, ownersTable, &sum.Owners},
	}
	for _, et := range entityTables {
		n, err := replayEntities(ctx, sqldb, et.collection, tables[et.table], sum)
		if err != nil {
			return nil, err
		}
		*et.count = n
	}

	if err := replayItems(ctx, sqldb, tables, files, sum); err != nil {
		return nil, err
	}

	return sum, nil
}

func parseTable(f *zip.File) (tabular.Table, []string, error) {
	rc, err := f.Open()
	if err != nil {
		return tabular.Table{}, nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return tabular.Table{}, nil, err
	}
	return tabular.Unmarshal(data)
}

func maxID(t tabular.Table) int64 {
	var max int64
	for _, row := range t.Rows {
		if id, ok := row["id"].(int64); ok && id > max {
			max = id
		}
	}
	return max
}

func replayEntities(ctx context.Context, sqldb *sql.DB, collection string, t tabular.Table, sum *Summary) (int, error) {
	count := 0
	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		for i, row := range t.Rows {
			id, ok := row["id"].(int64)
			if !ok {
				sum.Warnings = append(sum.Warnings,
					fmt.Sprintf("%s: skipping row %d without numeric id", collection, i+1))
				continue
			}

			e := model.Entity{
				ID:          id,
				UUID:        stringOr(row["uuid"], uuid.NewString()),
				Name:        stringOr(row["name"], ""),
				Description: optionalString(row["description"]),
				CreatedAt:   timeOr(row["created_at"], time.Now().UTC()),
				UpdatedAt:   optionalTime(row["updated_at"]),
			}

			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encoding %s record: %w", collection, err)
			}
			if err := kv.Add(ctx, tx, collection, id, data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replaying %s: %w", collection, err)
	}
	return count, nil
}

// replayItems inserts each item, together with its attachment when the
// archive carries one, in a single transaction per item.
func replayItems(ctx context.Context, sqldb *sql.DB, tables map[string]tabular.Table, files map[string]*zip.File, sum *Summary) error {
	index := imageIndex(tables[imagesTable])
	attachments := attachmentFiles(files)

	for i, row := range tables[itemsTable].Rows {
		id, ok := row["id"].(int64)
		if !ok {
			sum.Warnings = append(sum.Warnings,
				fmt.Sprintf("items: skipping row %d without numeric id", i+1))
			continue
		}

		item := model.Item{
			ID:          id,
			UUID:        stringOr(row["uuid"], uuid.NewString()),
			Name:        stringOr(row["name"], ""),
			Description: optionalString(row["description"]),
			LocationID:  intOr(row["location_id"], 0),
			CategoryID:  intOr(row["category_id"], 0),
			OwnerID:     intOr(row["owner_id"], 0),
			Price:       optionalFloat(row["price"]),
			CreatedAt:   timeOr(row["created_at"], time.Now().UTC()),
			UpdatedAt:   optionalTime(row["updated_at"]),
		}

		var blob []byte
		var filename, mimeType string
		if f, ok := attachments[id]; ok {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("opening attachment for item %d: %w", id, err)
			}
			blob, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("reading attachment for item %d: %w", id, err)
			}

			entry := index[id]
			filename = entry.filename
			if filename == "" {
				filename = path.Base(f.Name)
			}
			mimeType = resolveMIME(entry.mime, blob, path.Ext(f.Name))

			imageUUID := stringOr(row["image_uuid"], "")
			if imageUUID == "" {
				imageUUID = entry.uuid
			}
			if imageUUID == "" {
				imageUUID = uuid.NewString()
			}
			item.ImageUUID = &imageUUID
		} else if row["image_uuid"] != nil {
			// The uuid refers to an attachment the archive does not carry;
			// dropping it keeps the uuid/attachment invariant intact.
			sum.Warnings = append(sum.Warnings,
				fmt.Sprintf("items: row %d references a missing attachment file", i+1))
		}

		err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encoding item record: %w", err)
			}
			if err := kv.Add(ctx, tx, kv.Items, id, data); err != nil {
				return err
			}
			if blob != nil {
				if err := store.PutAttachment(ctx, tx, id, blob, filename, mimeType); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("replaying item %d: %w", id, err)
		}

		sum.Items++
		if blob != nil {
			sum.Images++
		}
	}
	return nil
}

type indexEntry struct {
	uuid     string
	mime     string
	filename string
}

func imageIndex(t tabular.Table) map[int64]indexEntry {
	index := make(map[int64]indexEntry, len(t.Rows))
	for _, row := range t.Rows {
		id, ok := row["image_id"].(int64)
		if !ok {
			continue
		}
		index[id] = indexEntry{
			uuid:     stringOr(row["uuid"], ""),
			mime:     stringOr(row["image_mimetype"], ""),
			filename: stringOr(row["image_filename"], ""),
		}
	}
	return index
}

// attachmentFiles maps item numeric id to the staged attachment file,
// derived from the "<id>.<ext>" naming under the images subdirectory.
func attachmentFiles(files map[string]*zip.File) map[int64]*zip.File {
	attachments := make(map[int64]*zip.File)
	for name, f := range files {
		if !strings.HasPrefix(name, imagesDir) || f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(name)
		stem := strings.TrimSuffix(base, path.Ext(base))
		id, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			continue
		}
		attachments[id] = f
	}
	return attachments
}

// resolveMIME picks the attachment MIME type: the index table's declared
// type, else a type sniffed from the bytes, else a guess from the file
// extension, else the generic binary fallback.
func resolveMIME(declared string, blob []byte, ext string) string {
	if declared != "" {
		return declared
	}
	if detected := imaging.DetectMIME(blob); detected != "" && detected != "application/octet-stream" {
		return detected
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func optionalString(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

func intOr(v any, fallback int64) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	}
	return fallback
}

func optionalFloat(v any) *float64 {
	switch x := v.(type) {
	case int64:
		f := float64(x)
		return &f
	case float64:
		return &x
	}
	return nil
}

func timeOr(v any, fallback time.Time) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return fallback
}

func optionalTime(v any) *time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t
		}
	}
	return nil
}
