package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/keyhandler/gpg"
	"github.com/effective-security/keyhandler/internal/testkeys"
	"github.com/effective-security/x/guid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockedEngine struct {
	mock.Mock
}

func (m *mockedEngine) Name() string {
	return "mocked"
}

func (m *mockedEngine) Import(ctx context.Context, home, keyBlock string) (*gpg.ImportOutcome, error) {
	args := m.Called(ctx, home, keyBlock)
	var res *gpg.ImportOutcome
	if r := args.Get(0); r != nil {
		res = r.(*gpg.ImportOutcome)
	}
	return res, args.Error(1)
}

func (m *mockedEngine) ListEntries(ctx context.Context, home string) ([]gpg.KeyringEntry, error) {
	args := m.Called(ctx, home)
	var res []gpg.KeyringEntry
	if r := args.Get(0); r != nil {
		res = r.([]gpg.KeyringEntry)
	}
	return res, args.Error(1)
}

type recorder struct {
	lock   sync.Mutex
	states []State
	paths  map[string]bool
}

func (r *recorder) observe(state State, path string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = append(r.states, state)
	if path != "" {
		if r.paths == nil {
			r.paths = map[string]bool{}
		}
		r.paths[path] = true
	}
}

type managerSuite struct {
	suite.Suite

	tmpdir string
	memfs  afero.Fs
	rec    *recorder
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(managerSuite))
}

func (s *managerSuite) SetupTest() {
	s.tmpdir = filepath.Join(os.TempDir(), "tests", "keyhandler", guid.MustCreate())
	s.Require().NoError(os.MkdirAll(s.tmpdir, 0700))

	s.memfs = afero.NewMemMapFs()
	s.Require().NoError(s.memfs.MkdirAll(s.tmpdir, 0700))

	s.rec = &recorder{}
}

func (s *managerSuite) TearDownTest() {
	s.assertEmpty(afero.NewOsFs())
	s.assertEmpty(s.memfs)
	_ = os.RemoveAll(s.tmpdir)
}

func (s *managerSuite) assertEmpty(fs afero.Fs) {
	list, err := afero.ReadDir(fs, s.tmpdir)
	s.Require().NoError(err)
	s.Empty(list, "orphaned sandboxes in %s", s.tmpdir)
}

func (s *managerSuite) mocked(engine gpg.Engine) *Manager {
	m, err := NewManager(engine, Config{
		TmpFolder: s.tmpdir,
		Fs:        s.memfs,
		Observer:  s.rec.observe,
	})
	s.Require().NoError(err)
	return m
}

func (s *managerSuite) native() *Manager {
	m, err := NewManager(gpg.NewNative(), Config{
		TmpFolder: s.tmpdir,
		Observer:  s.rec.observe,
	})
	s.Require().NoError(err)
	return m
}

// sandboxExists asserts the engine is called inside an existing sandbox
func (s *managerSuite) sandboxExists(args mock.Arguments) {
	home := args.String(1)
	s.Equal(s.tmpdir, filepath.Dir(home))
	s.Len(filepath.Base(home), MinTokenLength)
	exists, err := afero.DirExists(s.memfs, home)
	s.NoError(err)
	s.True(exists)
}

func (s *managerSuite) TestNewManager() {
	_, err := NewManager(nil, Config{TmpFolder: s.tmpdir})
	s.EqualError(err, "engine is required")

	_, err = NewManager(gpg.NewNative(), Config{})
	s.EqualError(err, "tmp_folder is required")

	_, err = NewManager(gpg.NewNative(), Config{TmpFolder: s.tmpdir, TokenLength: 10})
	s.EqualError(err, "token length must be at least 24")

	m, err := NewManager(gpg.NewNative(), Config{TmpFolder: s.tmpdir, TokenLength: 32})
	s.Require().NoError(err)
	s.Equal(s.tmpdir, m.Root())
	s.Equal(gpg.NativeEngineName, m.Engine().Name())

	kr, err := m.Create()
	s.Require().NoError(err)
	s.Len(kr.Token(), 32)
	s.Equal(filepath.Join(s.tmpdir, kr.Token()), kr.Path())
	s.DirExists(kr.Path())
	s.NoError(kr.Destroy())
	s.NoDirExists(kr.Path())
}

func (s *managerSuite) TestCreateDestroy() {
	m := s.mocked(&mockedEngine{})

	kr1, err := m.Create()
	s.Require().NoError(err)
	kr2, err := m.Create()
	s.Require().NoError(err)
	s.NotEqual(kr1.Path(), kr2.Path())

	s.Require().NoError(afero.WriteFile(s.memfs, filepath.Join(kr1.Path(), "pubring.gpg"), []byte("x"), 0600))

	s.NoError(kr1.Destroy())
	s.NoError(kr1.Destroy())
	exists, _ := afero.DirExists(s.memfs, kr1.Path())
	s.False(exists)

	exists, _ = afero.DirExists(s.memfs, kr2.Path())
	s.True(exists)
	s.NoError(kr2.Destroy())
}

func (s *managerSuite) TestDestroyError() {
	kr := &Keyring{
		token: "abc",
		path:  "/abc",
		fs:    afero.NewReadOnlyFs(afero.NewMemMapFs()),
	}
	err := kr.Destroy()
	s.Require().Error(err)
	s.Contains(err.Error(), "unable to remove /abc")
	s.Equal(err, kr.Destroy())
}

func (s *managerSuite) TestSuccess_Native() {
	fp, err := s.native().ImportAndVerify(context.Background(), testkeys.General)
	s.Require().NoError(err)
	s.Equal(testkeys.GeneralFingerprint, fp)

	s.Equal([]State{SandboxCreated, Imported, FingerprintExtracted, CrossChecked, CleanedUp}, s.rec.states)
	s.Require().Len(s.rec.paths, 1)
	for p := range s.rec.paths {
		s.NoDirExists(p)
	}
}

func (s *managerSuite) TestSuccess_NativeMemFs() {
	fp, err := s.mocked(gpg.NewNativeWithFs(s.memfs)).ImportAndVerify(context.Background(), testkeys.General)
	s.Require().NoError(err)
	s.Equal(testkeys.GeneralFingerprint, fp)
	s.Require().Len(s.rec.paths, 1)
	for p := range s.rec.paths {
		exists, err := afero.DirExists(s.memfs, p)
		s.NoError(err)
		s.False(exists)
	}
}

func (s *managerSuite) TestSuccess_Mocked() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, testkeys.General).
		Run(s.sandboxExists).
		Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{testkeys.GeneralFingerprint}}, nil)
	e.On("ListEntries", mock.Anything, mock.Anything).
		Return([]gpg.KeyringEntry{
			{Fingerprint: testkeys.SecondFingerprint},
			{Fingerprint: testkeys.GeneralFingerprint},
		}, nil)

	fp, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.Require().NoError(err)
	s.Equal(testkeys.GeneralFingerprint, fp)
	e.AssertExpectations(s.T())

	// both engine calls were made against the same sandbox
	s.Equal(e.Calls[0].Arguments.String(1), e.Calls[1].Arguments.String(1))
}

func (s *managerSuite) TestImportCountZero() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Run(s.sandboxExists).
		Return(&gpg.ImportOutcome{Count: 0}, nil)

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrImportFailed))
	s.Equal("imported 0 keys: failed to import public key", err.Error())
	e.AssertNotCalled(s.T(), "ListEntries", mock.Anything, mock.Anything)

	s.Equal([]State{SandboxCreated, Failed, CleanedUp}, s.rec.states)
}

func (s *managerSuite) TestImportCountMany_Native() {
	_, err := s.native().ImportAndVerify(context.Background(), testkeys.Both)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrImportFailed))
}

func (s *managerSuite) TestImportResultNil() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.True(errors.Is(err, ErrImportFailed))
}

func (s *managerSuite) TestImportError() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("gpg --import failed: exit status 2"))

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrImportFailed))
	s.Contains(err.Error(), "exit status 2")
}

func (s *managerSuite) TestImportError_Native() {
	_, err := s.native().ImportAndVerify(context.Background(), validateOnlyKey)
	s.True(errors.Is(err, ErrImportFailed))
}

func (s *managerSuite) TestFingerprintNone() {
	for _, fprs := range [][]string{nil, {}, {""}} {
		e := &mockedEngine{}
		e.On("Import", mock.Anything, mock.Anything, mock.Anything).
			Return(&gpg.ImportOutcome{Count: 1, Fingerprints: fprs}, nil)

		_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
		s.True(errors.Is(err, ErrFingerprintNone), "%v", fprs)
		e.AssertNotCalled(s.T(), "ListEntries", mock.Anything, mock.Anything)
	}
}

func (s *managerSuite) TestFingerprintsMany() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{testkeys.GeneralFingerprint, testkeys.SecondFingerprint}}, nil)

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.True(errors.Is(err, ErrImportFailed))
}

func (s *managerSuite) TestFingerprintInvalid() {
	for _, fp := range []string{
		strings.ToLower(testkeys.GeneralFingerprint),
		testkeys.GeneralFingerprint[:39],
		"../../../../etc/passwd",
	} {
		e := &mockedEngine{}
		e.On("Import", mock.Anything, mock.Anything, mock.Anything).
			Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{fp}}, nil)

		_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
		s.True(errors.Is(err, ErrFingerprintInvalid), fp)
		e.AssertNotCalled(s.T(), "ListEntries", mock.Anything, mock.Anything)
	}
}

func (s *managerSuite) TestKeyNotFound() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{testkeys.GeneralFingerprint}}, nil)
	e.On("ListEntries", mock.Anything, mock.Anything).
		Run(s.sandboxExists).
		Return([]gpg.KeyringEntry{{Fingerprint: testkeys.SecondFingerprint}}, nil)

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrKeyNotFound))
	s.Equal([]State{SandboxCreated, Imported, FingerprintExtracted, Failed, CleanedUp}, s.rec.states)
}

func (s *managerSuite) TestKeyNotFound_EmptyListing() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{testkeys.GeneralFingerprint}}, nil)
	e.On("ListEntries", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.True(errors.Is(err, ErrKeyNotFound))
}

func (s *managerSuite) TestListError() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Return(&gpg.ImportOutcome{Count: 1, Fingerprints: []string{testkeys.GeneralFingerprint}}, nil)
	e.On("ListEntries", mock.Anything, mock.Anything).Return(nil, errors.New("keyring corrupted"))

	_, err := s.mocked(e).ImportAndVerify(context.Background(), testkeys.General)
	s.True(errors.Is(err, ErrKeyNotFound))
	s.Contains(err.Error(), "keyring corrupted")
}

func (s *managerSuite) TestEnginePanic() {
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			s.sandboxExists(args)
			panic("engine fault")
		})

	m := s.mocked(e)
	s.PanicsWithValue("engine fault", func() {
		_, _ = m.ImportAndVerify(context.Background(), testkeys.General)
	})
	s.Equal([]State{SandboxCreated, Failed, CleanedUp}, s.rec.states)
}

func (s *managerSuite) TestTmpFolderMissing() {
	e := &mockedEngine{}
	m, err := NewManager(e, Config{
		TmpFolder: filepath.Join(s.tmpdir, "missing"),
		Fs:        s.memfs,
		Observer:  s.rec.observe,
	})
	s.Require().NoError(err)

	_, err = m.ImportAndVerify(context.Background(), testkeys.General)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrTmpFolderMissing))
	s.False(errors.Is(err, ErrImportFailed))
	e.AssertNotCalled(s.T(), "Import", mock.Anything, mock.Anything, mock.Anything)
	s.Equal([]State{Failed}, s.rec.states)

	// a file is not a folder
	file := filepath.Join(s.tmpdir, "file")
	s.Require().NoError(afero.WriteFile(s.memfs, file, []byte("x"), 0600))
	defer s.memfs.Remove(file)

	m, err = NewManager(e, Config{TmpFolder: file, Fs: s.memfs})
	s.Require().NoError(err)
	_, err = m.ImportAndVerify(context.Background(), testkeys.General)
	s.True(errors.Is(err, ErrTmpFolderMissing))
}

func (s *managerSuite) TestCreateFailure() {
	ro := afero.NewReadOnlyFs(s.memfs)
	e := &mockedEngine{}
	m, err := NewManager(e, Config{TmpFolder: s.tmpdir, Fs: ro})
	s.Require().NoError(err)

	_, err = m.ImportAndVerify(context.Background(), testkeys.General)
	s.Require().Error(err)
	s.True(errors.Is(err, ErrImportFailed))
	e.AssertNotCalled(s.T(), "Import", mock.Anything, mock.Anything, mock.Anything)
}

func (s *managerSuite) TestCancelled() {
	e := &mockedEngine{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.mocked(e).ImportAndVerify(ctx, testkeys.General)
	s.True(errors.Is(err, ErrImportFailed))
	s.True(errors.Is(err, context.Canceled))
	e.AssertNotCalled(s.T(), "Import", mock.Anything, mock.Anything, mock.Anything)
}

func (s *managerSuite) TestCancelledDuringImport() {
	ctx, cancel := context.WithCancel(context.Background())
	e := &mockedEngine{}
	e.On("Import", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	_, err := s.mocked(e).ImportAndVerify(ctx, testkeys.General)
	s.True(errors.Is(err, ErrImportFailed))
	s.Equal([]State{SandboxCreated, Failed, CleanedUp}, s.rec.states)
}

func (s *managerSuite) TestConcurrent() {
	m := s.native()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp, err := m.ImportAndVerify(context.Background(), testkeys.General)
			if err == nil && fp != testkeys.GeneralFingerprint {
				err = errors.Errorf("unexpected fingerprint %s", fp)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Len(s.rec.paths, n)
}

// validateOnlyKey passes validation but holds no key
const validateOnlyKey = "-----BEGIN PGP PUBLIC KEY BLOCK-----\n\naB1+/=\n-----END PGP PUBLIC KEY BLOCK-----"
