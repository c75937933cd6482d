package introspect

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataDir(name string) string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// We're in internal/introspect, go up two levels
	root := filepath.Dir(filepath.Dir(wd))
	return filepath.Join(root, "testdata", name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func loadTestdata(t *testing.T, name string) *Packages {
	t.Helper()
	p, err := LoadPackages(context.Background(), LoadOptions{Dir: testdataDir(name)}, testLogger())
	require.NoError(t, err)
	return p
}

func memberNames(members []Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return names
}

func findMember(t *testing.T, members []Member, name string) Member {
	t.Helper()
	for _, m := range members {
		if m.Name == name {
			return m
		}
	}
	require.Failf(t, "member not found", "%s in %v", name, memberNames(members))
	return Member{}
}

const widgetService = "example.com/widgets.WidgetService"

func TestPackages_LookupType(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	info, err := p.LookupType(widgetService)
	require.NoError(t, err)
	assert.Equal(t, widgetService, info.ID)
	assert.Equal(t, "WidgetService manages widgets.\n\n@version 1.0\n", info.Doc)
}

func TestPackages_LookupType_NotFound(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	_, err := p.LookupType("example.com/widgets.Missing")
	assert.ErrorIs(t, err, ErrTypeNotFound)

	_, err = p.Members("example.com/widgets.Missing", Public)
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestPackages_PublicMembers(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	members, err := p.Members(widgetService, Public)
	require.NoError(t, err)
	// Method set order, then associated constructors.
	assert.Equal(t, []string{"Create", "List", "Reset", "NewWidgetService"}, memberNames(members))

	create := findMember(t, members, "Create")
	assert.Equal(t, widgetService, create.Owner)
	assert.Equal(t, "Create creates a widget.\n@param name string\n", create.Doc)
	assert.Equal(t, Public, create.Modifiers)

	assert.Empty(t, findMember(t, members, "Reset").Doc)

	ctor := findMember(t, members, "NewWidgetService")
	assert.Equal(t, Static|Public, ctor.Modifiers)
	assert.Equal(t, "NewWidgetService creates an empty service.\n", ctor.Doc)
}

func TestPackages_ZeroVisibilityIsPublic(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	zero, err := p.Members(widgetService, 0)
	require.NoError(t, err)
	public, err := p.Members(widgetService, Public)
	require.NoError(t, err)
	assert.Equal(t, public, zero)
}

func TestPackages_PrivateAndStaticFilters(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	private, err := p.Members(widgetService, Private)
	require.NoError(t, err)
	assert.Equal(t, []string{"validate"}, memberNames(private))

	static, err := p.Members(widgetService, Static)
	require.NoError(t, err)
	assert.Equal(t, []string{"NewWidgetService"}, memberNames(static))

	both, err := p.Members(widgetService, Public|Private)
	require.NoError(t, err)
	assert.Len(t, both, 5)
}

func TestPackages_InvalidVisibility(t *testing.T) {
	p := loadTestdata(t, "01_widgets")

	_, err := p.Members(widgetService, Visibility(0x80))
	assert.ErrorIs(t, err, ErrInvalidVisibility)
}

func TestPackages_PromotedMethodsKeepDeclaringOwner(t *testing.T) {
	p := loadTestdata(t, "02_embedding")

	members, err := p.Members("example.com/embedding.Store", Public)
	require.NoError(t, err)

	assert.Equal(t, "example.com/embedding.Base", findMember(t, members, "Describe").Owner)
	assert.Equal(t, "Describe returns a short description.\n", findMember(t, members, "Describe").Doc)
	assert.Equal(t, "sync.Mutex", findMember(t, members, "Lock").Owner)
	assert.Equal(t, "example.com/embedding.Store", findMember(t, members, "Put").Owner)
}

func TestPackages_ImportedTypesResolveWithoutDocs(t *testing.T) {
	p := loadTestdata(t, "02_embedding")

	info, err := p.LookupType("sync.Mutex")
	require.NoError(t, err)
	assert.Empty(t, info.Doc)

	members, err := p.Members("sync.Mutex", Public)
	require.NoError(t, err)
	assert.Contains(t, memberNames(members), "Lock")
}

func TestPackages_InterfaceMembersAreAbstract(t *testing.T) {
	p := loadTestdata(t, "03_interfaces")

	members, err := p.Members("example.com/interfaces.ReadCloser", Public)
	require.NoError(t, err)
	assert.Equal(t, []string{"Close", "Read"}, memberNames(members))

	closeM := findMember(t, members, "Close")
	assert.Equal(t, "example.com/interfaces.ReadCloser", closeM.Owner)
	assert.Equal(t, "Close releases resources.\n", closeM.Doc)
	assert.Equal(t, Abstract|Public, closeM.Modifiers)

	read := findMember(t, members, "Read")
	assert.Equal(t, "example.com/interfaces.Reader", read.Owner)
	assert.Equal(t, "Read returns the next chunk.\n", read.Doc)

	abstract, err := p.Members("example.com/interfaces.File", Abstract)
	require.NoError(t, err)
	assert.Empty(t, abstract)
}

func TestPackages_GroupedTypeDeclDocs(t *testing.T) {
	p := loadTestdata(t, "03_interfaces")

	file, err := p.LookupType("example.com/interfaces.File")
	require.NoError(t, err)
	assert.Equal(t, "File is an open file.\n", file.Doc)

	dir, err := p.LookupType("example.com/interfaces.Dir")
	require.NoError(t, err)
	assert.Equal(t, "Dir is an open directory.\n", dir.Doc)
}

func TestPackages_RootTypes(t *testing.T) {
	p := loadTestdata(t, "03_interfaces")

	assert.Equal(t, []string{
		"example.com/interfaces.Dir",
		"example.com/interfaces.File",
		"example.com/interfaces.ReadCloser",
		"example.com/interfaces.Reader",
	}, p.RootTypes())
}

func TestPackages_TestsOption(t *testing.T) {
	dir := testdataDir("04_tests")

	plain, err := LoadPackages(context.Background(), LoadOptions{Dir: dir}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/testsonly.Real"}, plain.RootTypes())
	_, err = plain.LookupType("example.com/testsonly.Helper")
	assert.ErrorIs(t, err, ErrTypeNotFound)

	withTests, err := LoadPackages(context.Background(), LoadOptions{Dir: dir, Tests: true}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"example.com/testsonly.Helper",
		"example.com/testsonly.Real",
	}, withTests.RootTypes())

	info, err := withTests.LookupType("example.com/testsonly.Helper")
	require.NoError(t, err)
	assert.Equal(t, "Helper exists only in test builds.\n", info.Doc)

	members, err := withTests.Members("example.com/testsonly.Real", Public)
	require.NoError(t, err)
	assert.Equal(t, []string{"Check", "Do"}, memberNames(members))
	assert.Equal(t, "Check verifies Real.\n", findMember(t, members, "Check").Doc)
}
