package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeOrderNotFound, "order not found")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderNotFound, err.Code)
	suite.Equal("order not found", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeOrderNotFound, "order %s not found", "abc")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderNotFound, err.Code)
	suite.Equal("order abc not found", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "failed to query bars", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeDataNotFound, cause, "no bars for instrument %s", "ES")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("no bars for instrument ES", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeTradingHalted, "trading is halted")
	suite.Equal(ErrCodeTradingHalted, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeOrderNotFound, "order not found")
	wrapped := fmt.Errorf("submit failed: %w", cause)
	suite.Equal(ErrCodeOrderNotFound, GetCode(wrapped))
	suite.True(HasCode(wrapped, ErrCodeOrderNotFound))
}

func (suite *ErrorTestSuite) TestGetCodeUnknown() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
	suite.False(HasCode(err, ErrCodeOrderNotFound))
}
