package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

func TestRules(t *testing.T) {
	private := &models.File{ID: 1, UserID: 10}
	public := &models.File{ID: 2, UserID: 10, IsPublic: true}

	type tTestCase struct {
		name      string
		caller    int64
		file      *models.File
		canManage bool
		canRead   bool
	}
	testCases := []tTestCase{
		{name: "owner of private", caller: 10, file: private, canManage: true, canRead: true},
		{name: "stranger on private", caller: 11, file: private},
		{name: "anonymous on private", caller: models.Anonymous, file: private},
		{name: "owner of public", caller: 10, file: public, canManage: true, canRead: true},
		{name: "stranger on public", caller: 11, file: public, canRead: true},
		{name: "anonymous on public", caller: models.Anonymous, file: public, canRead: true},
		{name: "missing entity", caller: 10, file: nil},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.canManage, CanManage(testCase.caller, testCase.file))
			assert.Equal(t, testCase.canRead, CanRead(testCase.caller, testCase.file))
		})
	}
}
