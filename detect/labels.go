package detect

// VOCLabels The 20 Pascal VOC class names in the order the pretrained
// tiny-YOLOv2 network emits them.
var VOCLabels = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle",
	"bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person",
	"pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

// ClassName Returns label for class index, or a placeholder for out-of-range indices
func ClassName(class int) string {
	if class < 0 || class >= len(VOCLabels) {
		return "unknown"
	}
	return VOCLabels[class]
}
