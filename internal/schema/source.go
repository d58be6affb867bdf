package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Migration is one schema-change step replayed against every tenant
// namespace, identified by its sequence number.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Source holds the ordered set of tenant-schema migrations.
type Source struct {
	migrations []Migration
}

// LoadDir reads NNNN_name.sql files from dir. Versions must be unique;
// the returned source is sorted in ascending sequence order.
func LoadDir(dir string) (*Source, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("glob migration files: %w", err)
	}
	sort.Strings(files)

	var migrations []Migration
	for _, f := range files {
		name := filepath.Base(f)
		version, err := parseVersion(name)
		if err != nil {
			return nil, err
		}
		sql, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(sql)})
	}
	return NewSource(migrations)
}

func NewSource(migrations []Migration) (*Source, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, m := range sorted {
		if m.Version <= 0 {
			return nil, fmt.Errorf("migration %s: version must be positive", m.Name)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)",
				m.Version, sorted[i-1].Name, m.Name)
		}
	}
	return &Source{migrations: sorted}, nil
}

func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: want NNNN_name.sql", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
	}
	return version, nil
}

// All returns every migration in ascending order.
func (s *Source) All() []Migration {
	return s.migrations
}

// Since returns migrations with a sequence number greater than version,
// in ascending order.
func (s *Source) Since(version int) []Migration {
	i := sort.Search(len(s.migrations), func(i int) bool {
		return s.migrations[i].Version > version
	})
	return s.migrations[i:]
}

// Latest returns the highest sequence number, or zero for an empty source.
func (s *Source) Latest() int {
	if len(s.migrations) == 0 {
		return 0
	}
	return s.migrations[len(s.migrations)-1].Version
}
