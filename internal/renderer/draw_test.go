package renderer

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const epsilon = 1e-5

func TestUniformsRotateQuarterTurnPerSecond(t *testing.T) {
	extent := core1_0.Extent2D{Width: 800, Height: 600}

	start := uniformsAt(0, extent)
	if !start.Model.ApproxEqualThreshold(mgl32.Ident4(), epsilon) {
		t.Errorf("model at t=0 = %v, want identity", start.Model)
	}

	oneSecond := uniformsAt(time.Second, extent)
	rotated := oneSecond.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !rotated.ApproxEqualThreshold(mgl32.Vec4{0, 1, 0, 1}, epsilon) {
		t.Errorf("x axis after 1s = %v, want y axis", rotated)
	}

	wrapped := uniformsAt(5*time.Second, extent)
	if !wrapped.Model.ApproxEqualThreshold(oneSecond.Model, epsilon) {
		t.Errorf("rotation at 5s should match 1s")
	}
}

func TestUniformsProjectIntoVulkanClipSpace(t *testing.T) {
	ubo := uniformsAt(0, core1_0.Extent2D{Width: 800, Height: 600})

	// The origin is in front of the camera and projects to the center of the screen
	clip := ubo.Proj.Mul4(ubo.View).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if mgl32.Abs(ndc.X()) > epsilon || mgl32.Abs(ndc.Y()) > epsilon {
		t.Errorf("origin projects to %v, want screen center", ndc)
	}
	if ndc.Z() < 0 || ndc.Z() > 1 {
		t.Errorf("depth %v outside Vulkan's [0,1]", ndc.Z())
	}

	// Up (+Z in world space) must land at negative Y, since Vulkan's Y points down
	up := ubo.Proj.Mul4(ubo.View).Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	if up.Y()/up.W() >= 0 {
		t.Errorf("world up projects to y=%v, want negative", up.Y()/up.W())
	}
}

func TestVertexInputDescriptions(t *testing.T) {
	binding := getVertexBindingDescription()
	if len(binding) != 1 || binding[0].Stride != 32 {
		t.Fatalf("binding = %+v, want one binding with stride 32", binding)
	}

	attributes := getVertexAttributeDescriptions()
	wantOffsets := []int{0, 12, 24}
	if len(attributes) != len(wantOffsets) {
		t.Fatalf("got %d attributes, want %d", len(attributes), len(wantOffsets))
	}
	for i, attribute := range attributes {
		if attribute.Location != i || attribute.Offset != wantOffsets[i] {
			t.Errorf("attribute %d = %+v, want location %d offset %d", i, attribute, i, wantOffsets[i])
		}
	}
}

func TestTransitionFor(t *testing.T) {
	upload, err := transitionFor(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		t.Fatal(err)
	}
	if upload.dstAccess != core1_0.AccessTransferWrite || upload.srcStage != core1_0.PipelineStageTopOfPipe {
		t.Errorf("unexpected upload transition %+v", upload)
	}

	sample, err := transitionFor(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		t.Fatal(err)
	}
	if sample.dstStage != core1_0.PipelineStageFragmentShader {
		t.Errorf("unexpected sampling transition %+v", sample)
	}

	_, err = transitionFor(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutShaderReadOnlyOptimal)
	if !errors.Is(err, ErrUnsupportedLayoutTransition) {
		t.Errorf("expected ErrUnsupportedLayoutTransition, got %v", err)
	}
}
