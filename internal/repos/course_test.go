package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/repos/testutil"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func seedCourse(t *testing.T, repo CourseRepo) *types.Course {
	t.Helper()
	course := &types.Course{
		ID:       uuid.New(),
		Code:     "RT-" + uuid.New().String()[:8],
		Title:    "Repo Test Course",
		Credits:  3,
		Capacity: 5,
		Term:     "Spring",
		Year:     2026,
		Status:   types.CourseActive,
	}
	if err := repo.Create(context.Background(), nil, course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func TestSetContractAddressOnce(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewCourseRepo(gdb, testutil.Logger(t))
	ctx := context.Background()
	course := seedCourse(t, repo)

	set, err := repo.SetContractAddress(ctx, nil, course.ID, "1001")
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	if !set {
		t.Fatal("first set should win")
	}

	set, err = repo.SetContractAddress(ctx, nil, course.ID, "2002")
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if set {
		t.Fatal("second set must be rejected")
	}

	stored, err := repo.GetByID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.ContractAddress == nil || *stored.ContractAddress != "1001" {
		t.Errorf("contract address = %v, want 1001", stored.ContractAddress)
	}
}

func TestCourseCodeUnique(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewCourseRepo(gdb, testutil.Logger(t))
	ctx := context.Background()
	course := seedCourse(t, repo)

	dup := &types.Course{
		ID:       uuid.New(),
		Code:     course.Code,
		Title:    "Duplicate",
		Credits:  3,
		Capacity: 5,
		Status:   types.CourseActive,
	}
	if err := repo.Create(ctx, nil, dup); err == nil {
		t.Fatal("duplicate course code should violate the unique index")
	}
}
