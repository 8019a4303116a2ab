package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

type DocumentStoreTestSuite struct {
	suite.Suite
	api   *MockObjectAPI
	store DocumentStore
}

func (s *DocumentStoreTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	client := NewMinIOClientWithAPI(s.api, &MinIOConfig{Bucket: "docs", MaxObjectSize: 64}, nil)
	s.store = NewDocumentStore(client, nil)
}

func (s *DocumentStoreTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func noSuchKey() error {
	return minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func (s *DocumentStoreTestSuite) TestPut() {
	body := strings.NewReader("%PDF-1.7")
	s.api.On("PutObject", mock.Anything, "docs", "chains/c1/rev-a.pdf", body, int64(8),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/pdf" && o.UserMetadata["chain"] == "c1"
		})).
		Return(minio.UploadInfo{Key: "chains/c1/rev-a.pdf", Size: 8, ETag: "e1"}, nil).Once()

	info, err := s.store.Put(context.Background(), "chains/c1/rev-a.pdf", body, 8, map[string]string{"chain": "c1"})
	s.Require().NoError(err)
	s.Equal("e1", info.ETag)
	s.Equal(int64(8), info.Size)
}

func (s *DocumentStoreTestSuite) TestPut_RejectsOversizeAndBadKeys() {
	_, err := s.store.Put(context.Background(), "big.pdf", strings.NewReader(""), 65, nil)
	s.ErrorIs(err, ErrObjectTooLarge)

	for _, key := range []string{"", "/abs.pdf", "a/../b.pdf"} {
		_, err := s.store.Put(context.Background(), key, strings.NewReader(""), 1, nil)
		s.ErrorIs(err, ErrInvalidKey, key)
	}
}

func (s *DocumentStoreTestSuite) TestGet() {
	s.api.On("StatObject", mock.Anything, "docs", "a.pdf", mock.Anything).
		Return(minio.ObjectInfo{Key: "a.pdf", Size: 8}, nil).Once()
	s.api.On("GetObject", mock.Anything, "docs", "a.pdf", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte("%PDF-1.7"))), nil).Once()

	data, err := s.store.Get(context.Background(), "a.pdf")
	s.Require().NoError(err)
	s.Equal("%PDF-1.7", string(data))
}

func (s *DocumentStoreTestSuite) TestGet_NotFound() {
	s.api.On("StatObject", mock.Anything, "docs", "missing.pdf", mock.Anything).
		Return(minio.ObjectInfo{}, noSuchKey()).Once()

	_, err := s.store.Get(context.Background(), "missing.pdf")
	s.True(pkgerrors.IsNotFound(err))
}

func (s *DocumentStoreTestSuite) TestGet_TooLargeBeforeDownload() {
	s.api.On("StatObject", mock.Anything, "docs", "huge.pdf", mock.Anything).
		Return(minio.ObjectInfo{Key: "huge.pdf", Size: 1 << 20}, nil).Once()

	_, err := s.store.Get(context.Background(), "huge.pdf")
	s.ErrorIs(err, ErrObjectTooLarge)
}

func (s *DocumentStoreTestSuite) TestGet_StreamLongerThanLimit() {
	s.api.On("StatObject", mock.Anything, "docs", "grew.pdf", mock.Anything).
		Return(minio.ObjectInfo{Key: "grew.pdf", Size: 10}, nil).Once()
	s.api.On("GetObject", mock.Anything, "docs", "grew.pdf", mock.Anything).
		Return(io.NopCloser(strings.NewReader(strings.Repeat("x", 100))), nil).Once()

	_, err := s.store.Get(context.Background(), "grew.pdf")
	s.ErrorIs(err, ErrObjectTooLarge)
}

func (s *DocumentStoreTestSuite) TestGet_OpenFailure() {
	s.api.On("StatObject", mock.Anything, "docs", "a.pdf", mock.Anything).
		Return(minio.ObjectInfo{Key: "a.pdf", Size: 8}, nil).Once()
	s.api.On("GetObject", mock.Anything, "docs", "a.pdf", mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	_, err := s.store.Get(context.Background(), "a.pdf")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageUnavailable))
}

func (s *DocumentStoreTestSuite) TestDelete() {
	s.api.On("RemoveObject", mock.Anything, "docs", "a.pdf", mock.Anything).Return(nil).Once()
	s.NoError(s.store.Delete(context.Background(), "a.pdf"))
}

func (s *DocumentStoreTestSuite) TestList() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "chains/c1/a.pdf", Size: 3}
	ch <- minio.ObjectInfo{Key: "chains/c1/b.pdf", Size: 4}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "docs", minio.ListObjectsOptions{Prefix: "chains/c1/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch)).Once()

	objs, err := s.store.List(context.Background(), "chains/c1/")
	s.Require().NoError(err)
	s.Require().Len(objs, 2)
	s.Equal("chains/c1/b.pdf", objs[1].Key)
}

func (s *DocumentStoreTestSuite) TestList_Error() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("access denied")}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "docs", mock.Anything).Return((<-chan minio.ObjectInfo)(ch)).Once()

	_, err := s.store.List(context.Background(), "")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageUnavailable))
}

func TestDocumentStoreSuite(t *testing.T) {
	suite.Run(t, new(DocumentStoreTestSuite))
}

//Personal.AI order the ending
