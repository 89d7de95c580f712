package native

import "unsafe"

// CStringAt читает строку, завершенную нулем, по адресу p.
// Память должна оставаться живой (закреплена или принадлежит движку)
// на время вызова.
func CStringAt(p uintptr) string {
	if p == 0 {
		return ""
	}
	base := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(base), n))
}

// BytesAt копирует n байт по адресу p
func BytesAt(p uintptr, n int) []byte {
	if p == 0 || n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	return out
}

// ItemsAt копирует массив тегов до завершающего элемента включительно
func ItemsAt(t Tags) []Item {
	if t == 0 {
		return nil
	}
	base := unsafe.Pointer(uintptr(t))
	size := unsafe.Sizeof(Item{})
	var items []Item
	for i := uintptr(0); ; i++ {
		it := *(*Item)(unsafe.Add(base, i*size))
		items = append(items, it)
		if it.IsSentinel() {
			return items
		}
	}
}

// AddressOf адрес первого байта буфера
func AddressOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// TagsOf адрес первого элемента массива тегов
func TagsOf(items []Item) Tags {
	if len(items) == 0 {
		return 0
	}
	return Tags(uintptr(unsafe.Pointer(&items[0])))
}
