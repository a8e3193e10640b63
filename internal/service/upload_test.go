package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUploadTree_KeysAreRelativeForwardSlashPaths(t *testing.T) {
	ctx := context.Background()
	root := testutil.WriteTree(t, map[string]string{
		"a/b.txt": "nested",
		"c.txt":   "top",
	})

	store := new(MockBucketStore)
	store.On("Upload", mock.Anything, mock.Anything, "bucket", mock.Anything).Return(nil)
	store.On("HeadObject", mock.Anything, "bucket", "a/b.txt").Return(storedSize(6), nil)
	store.On("HeadObject", mock.Anything, "bucket", "c.txt").Return(storedSize(3), nil)
	u := NewUploader(store, nil)

	report, err := u.UploadTree(ctx, root, "bucket")
	require.NoError(t, err)

	keys := append([]string(nil), report.Uploaded...)
	sort.Strings(keys)
	assert.Equal(t, []string{"a/b.txt", "c.txt"}, keys)
	assert.Empty(t, report.Failed)
	assert.Equal(t, int64(9), report.Bytes)

	store.AssertCalled(t, "Upload", mock.Anything, filepath.Join(root, "a", "b.txt"), "bucket", "a/b.txt")
	store.AssertCalled(t, "Upload", mock.Anything, filepath.Join(root, "c.txt"), "bucket", "c.txt")
	store.AssertNumberOfCalls(t, "Upload", 2)
}

func TestUploadTree_FailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	root := testutil.WriteTree(t, map[string]string{
		"one.txt":       "1",
		"two.txt":       "2",
		"docs/three.md": "3",
	})

	store := new(MockBucketStore)
	store.On("Upload", mock.Anything, mock.Anything, "bucket", "two.txt").Return(errors.New("access denied"))
	store.On("Upload", mock.Anything, mock.Anything, "bucket", mock.Anything).Return(nil)
	store.On("HeadObject", mock.Anything, "bucket", mock.Anything).Return(storedSize(1), nil)
	u := NewUploader(store, nil)

	report, err := u.UploadTree(ctx, root, "bucket")
	require.NoError(t, err)

	assert.Len(t, report.Uploaded, 2)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "two.txt", report.Failed[0].Key)
	store.AssertNumberOfCalls(t, "Upload", 3)
	store.AssertNotCalled(t, "HeadObject", mock.Anything, "bucket", "two.txt")
}

func TestUploadTree_StoredObjectIsVerified(t *testing.T) {
	ctx := context.Background()
	root := testutil.WriteTree(t, map[string]string{
		"short.txt":   "abc",
		"missing.txt": "abcd",
		"ok.txt":      "abcde",
	})

	gone := errors.New("NoSuchKey")
	store := new(MockBucketStore)
	store.On("Upload", mock.Anything, mock.Anything, "bucket", mock.Anything).Return(nil)
	store.On("HeadObject", mock.Anything, "bucket", "short.txt").Return(storedSize(1), nil)
	store.On("HeadObject", mock.Anything, "bucket", "missing.txt").Return(nil, gone)
	store.On("HeadObject", mock.Anything, "bucket", "ok.txt").Return(storedSize(5), nil)
	u := NewUploader(store, nil)

	report, err := u.UploadTree(ctx, root, "bucket")
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.txt"}, report.Uploaded)
	assert.Equal(t, int64(5), report.Bytes)

	failed := map[string]error{}
	for _, f := range report.Failed {
		failed[f.Key] = f.Err
	}
	require.Len(t, failed, 2)
	assert.ErrorContains(t, failed["short.txt"], "stored object is 1 bytes, local file is 3")
	assert.ErrorIs(t, failed["missing.txt"], gone)
}

func TestUploadTree_EmptyDirectory(t *testing.T) {
	ctx := context.Background()
	store := new(MockBucketStore)
	u := NewUploader(store, nil)

	report, err := u.UploadTree(ctx, t.TempDir(), "bucket")
	require.NoError(t, err)
	assert.Empty(t, report.Uploaded)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadTree_MissingRootIsFatal(t *testing.T) {
	ctx := context.Background()
	u := NewUploader(new(MockBucketStore), nil)

	_, err := u.UploadTree(ctx, filepath.Join(t.TempDir(), "synthetic_dataset"), "bucket")
	assert.ErrorIs(t, err, domain.ErrDataDirMissing)
	assert.Equal(t, domain.ErrCodeFatalSetup, domain.ErrorCode(err))
}

func TestUploadTree_RootIsAFile(t *testing.T) {
	ctx := context.Background()
	root := testutil.WriteTree(t, map[string]string{"doc.txt": "x"})
	u := NewUploader(new(MockBucketStore), nil)

	_, err := u.UploadTree(ctx, filepath.Join(root, "doc.txt"), "bucket")
	assert.ErrorIs(t, err, domain.ErrDataDirMissing)
}
