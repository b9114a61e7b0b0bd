package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvisioner records Ensure calls.
type fakeProvisioner struct {
	err   error
	calls []string
	order *[]string
}

func (f *fakeProvisioner) Ensure(ctx context.Context, name string) error {
	f.calls = append(f.calls, name)
	*f.order = append(*f.order, "ensure")

	return f.err
}

// fakeUploader returns canned upload results.
type fakeUploader struct {
	uploaded     []string
	uploadErr    error
	preflightErr error
	order        *[]string

	preflightCalls int
	uploadCalls    int
}

func (f *fakeUploader) Preflight(ctx context.Context, bucket string) error {
	f.preflightCalls++
	*f.order = append(*f.order, "preflight")

	return f.preflightErr
}

func (f *fakeUploader) UploadDir(
	ctx context.Context, bucket, localDir string,
) ([]string, error) {
	f.uploadCalls++
	*f.order = append(*f.order, "upload")

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	return f.uploaded, nil
}

// fakeInvalidator records the paths it was asked to purge.
type fakeInvalidator struct {
	err   error
	paths [][]string
	order *[]string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, site string, paths []string) error {
	f.paths = append(f.paths, paths)
	*f.order = append(*f.order, "invalidate")

	return f.err
}

type fixture struct {
	provisioner *fakeProvisioner
	uploader    *fakeUploader
	invalidator *fakeInvalidator
	order       []string
}

func newFixture(uploaded []string) *fixture {
	f := &fixture{}
	f.provisioner = &fakeProvisioner{order: &f.order}
	f.uploader = &fakeUploader{uploaded: uploaded, order: &f.order}
	f.invalidator = &fakeInvalidator{order: &f.order}

	return f
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func (f *fixture) deployer(opts *Options) *Deployer {
	return New(newTestLogger(), f.provisioner, f.uploader, f.invalidator, opts)
}

func TestRun_FullDeploy(t *testing.T) {
	f := newFixture([]string{"index.html", "assets/app.js"})

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure", "upload", "invalidate"}, f.order)
	assert.Equal(t, []string{"example-site"}, f.provisioner.calls)

	require.Len(t, f.invalidator.paths, 1)
	assert.Equal(t, []string{"/index.html", "/assets/app.js"}, f.invalidator.paths[0])
}

func TestRun_PreflightEnabled(t *testing.T) {
	f := newFixture([]string{"index.html"})

	err := f.deployer(&Options{Preflight: true}).
		Run(context.Background(), "example-site", "./public")
	require.NoError(t, err)

	assert.Equal(t, []string{"ensure", "preflight", "upload", "invalidate"}, f.order)
}

func TestRun_PreflightFailureAbortsBeforeUpload(t *testing.T) {
	f := newFixture([]string{"index.html"})
	f.uploader.preflightErr = errors.New("access denied")

	err := f.deployer(&Options{Preflight: true}).
		Run(context.Background(), "example-site", "./public")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload preflight")
	assert.Zero(t, f.uploader.uploadCalls)
	assert.Empty(t, f.invalidator.paths)
}

func TestRun_ProvisionFailureAbortsEverything(t *testing.T) {
	f := newFixture([]string{"index.html"})
	f.provisioner.err = errors.New("bucket name taken")

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provisioning bucket example-site")
	assert.Zero(t, f.uploader.uploadCalls)
	assert.Empty(t, f.invalidator.paths)
}

func TestRun_UploadFailureSkipsInvalidation(t *testing.T) {
	f := newFixture(nil)
	f.uploader.uploadErr = errors.New("uploading assets/app.js: access denied")

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading site files")
	assert.Empty(t, f.invalidator.paths, "no invalidation after a failed upload")
}

func TestRun_InvalidationFailure(t *testing.T) {
	f := newFixture([]string{"index.html"})
	f.invalidator.err = errors.New("throttled")

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalidating cache for example-site")
}

func TestRun_FiltersEmptyUploadResults(t *testing.T) {
	// Successful uploads never yield empty paths; the filter is defensive.
	f := newFixture([]string{"index.html", "", "error.html"})

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.NoError(t, err)

	require.Len(t, f.invalidator.paths, 1)
	assert.Equal(t, []string{"/index.html", "/error.html"}, f.invalidator.paths[0])
}

func TestRun_EmptySiteStillInvokesInvalidator(t *testing.T) {
	f := newFixture(nil)

	err := f.deployer(nil).Run(context.Background(), "example-site", "./public")
	require.NoError(t, err)

	require.Len(t, f.invalidator.paths, 1)
	assert.Empty(t, f.invalidator.paths[0])
}
