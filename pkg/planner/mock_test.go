package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yuya-takeyama/mvsync/pkg/index"
)

type mockFile struct {
	size    uint64
	modTime uint64
	content string
}

// mockOracle is an in-memory tree implementing oracle.Oracle for testing
type mockOracle struct {
	files         map[string]mockFile
	checksumCalls map[string]int
	checksumErr   error
	metadataErr   error
}

func newMockOracle(files map[string]mockFile) *mockOracle {
	return &mockOracle{files: files, checksumCalls: make(map[string]int)}
}

func (m *mockOracle) Metadata(ctx context.Context, root string) (*index.Index, error) {
	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	idx := index.New()
	for _, p := range paths {
		f := m.files[p]
		idx.Add(index.Fingerprint{Size: f.size, ModTime: f.modTime}, p)
	}
	return idx, nil
}

func (m *mockOracle) Checksum(ctx context.Context, path string) (string, error) {
	m.checksumCalls[path]++
	if m.checksumErr != nil {
		return "", m.checksumErr
	}
	f, ok := m.files[strings.TrimPrefix(path, "root/")]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return "sum:" + f.content, nil
}

func (m *mockOracle) Rename(ctx context.Context, from, to string) error {
	return fmt.Errorf("Rename not implemented")
}

func (m *mockOracle) Join(root, rel string) string {
	return root + "/" + rel
}

func (m *mockOracle) Close() error {
	return nil
}

// mockLogger is a mock implementation of logger.Logger for testing
type mockLogger struct {
	phases     []string
	debugCalls []string
}

func (m *mockLogger) Rename(source, target string) {}

func (m *mockLogger) Copy(source, target string) {}

func (m *mockLogger) Error(operation, path string, err error) {}

func (m *mockLogger) Debug(format string, args ...interface{}) {
	m.debugCalls = append(m.debugCalls, fmt.Sprintf(format, args...))
}

func (m *mockLogger) PhaseStart(phase string, totalItems int) {
	m.phases = append(m.phases, "start "+phase)
}

func (m *mockLogger) PhaseComplete(phase string, processedItems int) {
	m.phases = append(m.phases, "complete "+phase)
}
