package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

func TestQuestionBankService_Import(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.bankService()

	content := `[
		{"question":"2+2?","type":"mcq","options":["3","4"],"answer":"4","marks":4},
		{"question":"Pick primes","type":"mcq","options":["2","3","4"],"answer":["2","3"],"marks":4},
		{"question":"g in m/s^2","type":"numerical","answer":9.8,"marks":4},
		{"question":"Broken","type":"mcq","options":["a","b"],"answer":"z","marks":4}
	]`
	result, err := svc.Import(ctx, &validator.ImportBankRequest{Slug: "jee-physics", TestType: "JEE Physics"}, &FileUpload{
		Filename: "physics.json",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.False(t, result.Replaced)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)

	bank, err := svc.GetBank(ctx, "jee-physics")
	require.NoError(t, err)
	assert.Equal(t, "Jee Physics", bank.Name)
	assert.Equal(t, "JEE Physics", bank.TestType)

	questions, err := svc.GetQuestions(ctx, "jee-physics")
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, "2+2?", questions[0].Text)
	assert.True(t, questions[1].Answer.Multi)
	assert.True(t, env.redis.Exists(env.cache.Pool.GetCacheKey(cache.PoolKey("jee-physics"))))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 3, list[0].QuestionCount)

	// Re-importing replaces the questions and drops the cached pool.
	env.importBank(t, "jee-physics", 2, 4)
	assert.False(t, env.redis.Exists(env.cache.Pool.GetCacheKey(cache.PoolKey("jee-physics"))))
	questions, err = svc.GetQuestions(ctx, "jee-physics")
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].QuestionCount)
}

func TestQuestionBankService_Import_Rejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestEnv(t).bankService()

	upload := func(name, content string) *FileUpload {
		return &FileUpload{Filename: name, Size: int64(len(content)), Content: strings.NewReader(content)}
	}

	tests := []struct {
		name  string
		req   *validator.ImportBankRequest
		file  *FileUpload
		check func(t *testing.T, err error)
	}{
		{
			name: "missing slug",
			req:  &validator.ImportBankRequest{},
			file: upload("a.json", "[]"),
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				assert.True(t, errors.As(err, &verrs))
			},
		},
		{
			name: "unsupported format",
			req:  &validator.ImportBankRequest{Slug: "x"},
			file: upload("a.csv", "q,a"),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsupportedFile)
			},
		},
		{
			name: "malformed json",
			req:  &validator.ImportBankRequest{Slug: "x"},
			file: upload("a.json", "{"),
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				require.True(t, errors.As(err, &verrs))
				assert.Equal(t, "format", verrs[0].Rule)
			},
		},
		{
			name: "no valid questions",
			req:  &validator.ImportBankRequest{Slug: "x"},
			file: upload("a.json", `[{"question":"","type":"mcq","answer":"a","marks":1}]`),
			check: func(t *testing.T, err error) {
				var rule *BusinessRuleError
				require.True(t, errors.As(err, &rule))
				assert.Equal(t, "bank_not_empty", rule.Rule)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, tt.req, tt.file)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	_, err := svc.GetBank(ctx, "x")
	assert.ErrorIs(t, err, ErrBankNotFound)
	_, err = svc.GetQuestions(ctx, "x")
	assert.ErrorIs(t, err, ErrBankNotFound)
}

func TestQuestionBankService_SeedFromDir(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.bankService()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jee-maths.json"), []byte(bankJSON(3, 4)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), []byte(`[]`), 0o644))

	seeded, err := svc.SeedFromDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	bank, err := svc.GetBank(ctx, "jee-maths")
	require.NoError(t, err)
	assert.Equal(t, "JEE Physics", bank.TestType)

	// Banks already present are not reseeded.
	seeded, err = svc.SeedFromDir(ctx, dir)
	require.NoError(t, err)
	assert.Zero(t, seeded)

	seeded, err = svc.SeedFromDir(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

func TestQuestionBankService_Template(t *testing.T) {
	buf, err := newTestEnv(t).bankService().Template()
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}
