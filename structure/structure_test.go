package structure

import (
	"testing"

	"github.com/fgilic/entwine/spatial"
)

func baseStructure() Structure {
	return Structure{
		BaseDepthBegin:     0,
		BaseDepthEnd:       6,
		BasePointsPerChunk: 100,
		Dimensions:         3,
		Bounds:             spatial.NewBBox(spatial.Point{}, spatial.Point{X: 100, Y: 100, Z: 100}),
	}
}

func TestValidateAcceptsWellFormedStructure(t *testing.T) {
	if err := baseStructure().Validate(); err != nil {
		t.Fatalf("expected valid structure, got %v", err)
	}
}

func TestValidateRejectsBadDimensions(t *testing.T) {
	s := baseStructure()
	s.Dimensions = 4
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for invalid dimensions")
	}
}

func TestValidateRejectsInvertedBaseDepth(t *testing.T) {
	s := baseStructure()
	s.BaseDepthEnd = s.BaseDepthBegin
	if err := s.Validate(); err == nil {
		t.Fatal("expected error when baseDepthEnd does not exceed baseDepthBegin")
	}
}

func TestValidateRejectsSparseBeforeBase(t *testing.T) {
	s := baseStructure()
	s.SparseDepthBegin = 1
	if err := s.Validate(); err == nil {
		t.Fatal("expected error when sparseDepthBegin precedes baseDepthEnd")
	}
}

func TestIsWithinBase(t *testing.T) {
	s := baseStructure()
	if !s.IsWithinBase(0) || !s.IsWithinBase(5) {
		t.Fatal("depths within [begin, end) should be within base")
	}
	if s.IsWithinBase(6) {
		t.Fatal("baseDepthEnd itself should not be within base")
	}
}

func TestIsSparse(t *testing.T) {
	s := baseStructure()
	s.SparseDepthBegin = 10
	if s.IsSparse(9) {
		t.Fatal("depth before sparseDepthBegin should not be sparse")
	}
	if !s.IsSparse(10) || !s.IsSparse(20) {
		t.Fatal("depth at or beyond sparseDepthBegin should be sparse")
	}

	s.SparseDepthBegin = 0
	if s.IsSparse(1000) {
		t.Fatal("sparseDepthBegin of 0 should disable sparse addressing entirely")
	}
}

func TestPointsPerChunkStaticWithoutDynamicChunks(t *testing.T) {
	s := baseStructure()
	if got := s.PointsPerChunk(6); got != s.BasePointsPerChunk {
		t.Fatalf("PointsPerChunk(6) = %d, want %d (dynamic chunks disabled)", got, s.BasePointsPerChunk)
	}
	if got := s.PointsPerChunk(20); got != s.BasePointsPerChunk {
		t.Fatalf("PointsPerChunk(20) = %d, want %d", got, s.BasePointsPerChunk)
	}
}

func TestPointsPerChunkGrowsWithFactor(t *testing.T) {
	s := baseStructure()
	s.DynamicChunks = true
	s.Factor = 2

	base := s.PointsPerChunk(s.BaseDepthEnd)
	next := s.PointsPerChunk(s.BaseDepthEnd + 1)
	if next <= base {
		t.Fatalf("cold-region chunk budget should grow: depth %d = %d, depth %d = %d", s.BaseDepthEnd, base, s.BaseDepthEnd+1, next)
	}
}

func TestNumDirs(t *testing.T) {
	s := baseStructure()
	s.Dimensions = 3
	if s.NumDirs() != spatial.NumDirs3d {
		t.Fatalf("3D structure should have %d directions", spatial.NumDirs3d)
	}
	s.Dimensions = 2
	if s.NumDirs() != spatial.NumDirs2d {
		t.Fatalf("2D structure should have %d directions", spatial.NumDirs2d)
	}
}

func TestHierarchyStructureNeverShallowerThanTwelve(t *testing.T) {
	s := baseStructure()
	hs := s.HierarchyStructure()
	if hs.BaseDepthEnd < 12 {
		t.Fatalf("hierarchy structure base depth end = %d, want >= 12", hs.BaseDepthEnd)
	}
}

func TestHierarchyStructureShiftsSparseBoundary(t *testing.T) {
	s := baseStructure()
	s.SparseDepthBegin = 20
	hs := s.HierarchyStructure()
	if hs.SparseDepthBegin != 14 {
		t.Fatalf("hierarchy sparse depth = %d, want 14 (20 - 6)", hs.SparseDepthBegin)
	}
}
