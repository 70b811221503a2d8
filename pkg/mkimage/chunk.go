package mkimage

const (
	ChunkKindHeader = iota
	ChunkKindTable
	ChunkKindPayload
)

// Chunker is one piece of the output image. Offsets are assigned once all
// sizes are known; CopyBuf then writes the piece into the image buffer.
type Chunker interface {
	Kind() int
	GetName() string
	GetOffset() int
	SetOffset(off int)
	GetSize() int
	GetAlign() int
	CopyBuf(img *Image)
}

type Chunk struct {
	Name    string
	Offset  int
	Align   int
	Content []byte
}

func NewChunk(name string, align int, content []byte) Chunk {
	return Chunk{Name: name, Align: align, Content: content}
}

func (c *Chunk) Kind() int {
	return ChunkKindTable
}

func (c *Chunk) GetName() string {
	return c.Name
}

func (c *Chunk) GetOffset() int {
	return c.Offset
}

func (c *Chunk) SetOffset(off int) {
	c.Offset = off
}

func (c *Chunk) GetSize() int {
	return len(c.Content)
}

func (c *Chunk) GetAlign() int {
	if c.Align == 0 {
		return 1
	}
	return c.Align
}

func (c *Chunk) CopyBuf(img *Image) {
	copy(img.Buf[c.Offset:], c.Content)
}
