package scene

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ObjectData is one glTF mesh primitive's decoded payload: flattened
// vertex/index arrays, node transform, and PBR material fields.
type ObjectData struct {
	Vertices  []float32 // flattened xyz
	Indices   []uint32
	Transform [16]float32 // column-major, as glTF stores it
	BaseColor [4]float32
	Roughness float32
	Metallic  float32
	Emissive  [3]float32
}

// ImageData is one glTF image's decoded payload before format remap.
type ImageData struct {
	Format DecodedFormat
	Width  uint32
	Height uint32
	Bytes  []byte
}

// DocumentData is everything decodeDocument pulls out of a parsed glTF
// document — object arrays plus their source images, ready for the Scene
// package's GPU upload path.
type DocumentData struct {
	Objects []ObjectData
	Images  []ImageData
}

// decodeDocument walks document.Nodes -> node.Mesh -> mesh.Primitives,
// reading positions/indices via the accessor helpers and the node's local
// transform, mirroring original_source/src/loader/objects.rs.
func decodeDocument(doc *gltf.Document) (DocumentData, error) {
	var out DocumentData

	for _, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		mesh := doc.Meshes[*node.Mesh]
		transform := node.Matrix // [16]float32 column-major, gltf library's default

		for _, prim := range mesh.Primitives {
			posAccessorIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				return out, fmt.Errorf("scene: primitive missing POSITION attribute")
			}
			positions, err := modeler.ReadPosition(doc, doc.Accessors[posAccessorIdx], nil)
			if err != nil {
				return out, fmt.Errorf("scene: read positions: %w", err)
			}
			flattened := make([]float32, 0, len(positions)*3)
			for _, p := range positions {
				flattened = append(flattened, p[0], p[1], p[2])
			}

			var indices []uint32
			if prim.Indices != nil {
				indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
				if err != nil {
					return out, fmt.Errorf("scene: read indices: %w", err)
				}
			}

			obj := ObjectData{Vertices: flattened, Indices: indices, Transform: transform}
			if prim.Material != nil {
				applyMaterial(doc, *prim.Material, &obj)
			} else {
				obj.BaseColor = [4]float32{0.8, 0.8, 0.8, 1.0}
				obj.Metallic = 0
				obj.Roughness = 1
			}

			out.Objects = append(out.Objects, obj)
		}
	}

	for _, img := range doc.Images {
		data, err := decodeImage(doc, img)
		if err != nil {
			return out, err
		}
		out.Images = append(out.Images, data)
	}

	return out, nil
}

func applyMaterial(doc *gltf.Document, idx uint32, obj *ObjectData) {
	mat := doc.Materials[idx]
	obj.BaseColor = [4]float32{1, 1, 1, 1}
	obj.Roughness = 1
	obj.Metallic = 1
	if mat.PBRMetallicRoughness != nil {
		pbr := mat.PBRMetallicRoughness
		if pbr.BaseColorFactor != nil {
			obj.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.RoughnessFactor != nil {
			obj.Roughness = *pbr.RoughnessFactor
		}
		if pbr.MetallicFactor != nil {
			obj.Metallic = *pbr.MetallicFactor
		}
	}
	obj.Emissive = mat.EmissiveFactor
}

// decodeImage reads the image's encoded bytes from its buffer view through
// the gltf library, decodes the PNG/JPEG pixels with decodeRawImage, and maps
// the resulting channel count into the decoder-format enum RemapImage
// expects.
func decodeImage(doc *gltf.Document, img *gltf.Image) (ImageData, error) {
	data, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	if err != nil {
		return ImageData{}, fmt.Errorf("scene: read image bytes: %w", err)
	}
	width, height, channels, decoded, err := decodeRawImage(data)
	if err != nil {
		return ImageData{}, fmt.Errorf("scene: decode image: %w", err)
	}
	format, ok := channelsToFormat(channels)
	if !ok {
		return ImageData{}, ErrUnsupportedFormat
	}
	return ImageData{Format: format, Width: width, Height: height, Bytes: decoded}, nil
}

// decodeRawImage decodes the embedded PNG/JPEG bytes via the standard
// library's image package (no third-party image codec appears anywhere in
// the retrieved pack, so this one corner stays on stdlib — see DESIGN.md)
// and flattens to tightly-packed RGBA8.
func decodeRawImage(data []byte) (width, height uint32, channels int, pixels []byte, err error) {
	img, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return 0, 0, 0, nil, decodeErr
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, 0, w*h*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return uint32(w), uint32(h), 4, out, nil
}

func channelsToFormat(channels int) (DecodedFormat, bool) {
	switch channels {
	case 1:
		return FormatR8, true
	case 2:
		return FormatR8G8, true
	case 3:
		return FormatR8G8B8, true
	case 4:
		return FormatR8G8B8A8, true
	default:
		return 0, false
	}
}
