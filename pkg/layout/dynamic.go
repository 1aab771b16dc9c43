package layout

// tableRow は dynamic レイアウトの1行です。
// height は行の高さの割合、columns は各列の幅の割合で、いずれもガター分を除いた残りに対する値です。
type tableRow struct {
	height  float64
	columns []float64
}

// dynamicTables はパネル数ごとに手で調整した非対称のコマ割りです。
// 一般化したアルゴリズムではなく、見栄えのために選んだ固定値なのだ。
var dynamicTables = map[int][]tableRow{
	1: {
		{height: 1, columns: []float64{1}},
	},
	2: {
		{height: 0.58, columns: []float64{1}},
		{height: 0.42, columns: []float64{1}},
	},
	3: {
		{height: 0.55, columns: []float64{1}},
		{height: 0.45, columns: []float64{0.5, 0.5}},
	},
	4: {
		{height: 0.5, columns: []float64{0.62, 0.38}},
		{height: 0.5, columns: []float64{0.38, 0.62}},
	},
	5: {
		{height: 0.4, columns: []float64{0.55, 0.45}},
		{height: 0.22, columns: []float64{1}},
		{height: 0.38, columns: []float64{0.45, 0.55}},
	},
}

// fromTable は割合テーブルを実座標の矩形に展開します。
func fromTable(rows []tableRow, content Rect, gutter float64) []Rect {
	availH := content.H - gutter*float64(len(rows)-1)
	var frames []Rect
	y := content.Y
	for _, row := range rows {
		h := availH * row.height
		availW := content.W - gutter*float64(len(row.columns)-1)
		x := content.X
		for _, c := range row.columns {
			w := availW * c
			frames = append(frames, Rect{X: x, Y: y, W: w, H: h})
			x += w + gutter
		}
		y += h + gutter
	}
	return frames
}
