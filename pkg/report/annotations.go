package report

// MaxAnnotationsPerRequest is the largest batch a check run update accepts.
const MaxAnnotationsPerRequest = 50

// Annotation is an inline finding anchored to a file region.
type Annotation struct {
	Severity    Severity
	Title       string
	Message     string
	Path        string
	StartLine   int
	EndLine     int
	StartColumn *int
	EndColumn   *int
}

// ToAnnotation projects a problem onto an inline annotation.
func ToAnnotation(problem Problem) Annotation {
	title := problem.Title
	if title == "" {
		title = unknownTitle
	}
	message := problem.Message
	if message == "" {
		message = title
	}
	return Annotation{
		Severity:    problem.Severity,
		Title:       title,
		Message:     message,
		Path:        problem.Path,
		StartLine:   problem.StartLine,
		EndLine:     problem.EndLine,
		StartColumn: problem.StartColumn,
		EndColumn:   problem.EndColumn,
	}
}

// Annotations projects every problem onto an annotation.
func Annotations(problems []Problem) []Annotation {
	annotations := make([]Annotation, 0, len(problems))
	for _, problem := range problems {
		annotations = append(annotations, ToAnnotation(problem))
	}
	return annotations
}

// Batch splits annotations into chunks of at most size elements.
func Batch(annotations []Annotation, size int) [][]Annotation {
	if size <= 0 {
		size = MaxAnnotationsPerRequest
	}
	var batches [][]Annotation
	for start := 0; start < len(annotations); start += size {
		end := min(start+size, len(annotations))
		batches = append(batches, annotations[start:end])
	}
	return batches
}

// Conclusion returns the most severe level among the annotations, Notice
// when there are none.
func Conclusion(annotations []Annotation) Severity {
	conclusion := Notice
	for _, annotation := range annotations {
		switch annotation.Severity {
		case Failure:
			return Failure
		case Warning:
			conclusion = Warning
		}
	}
	return conclusion
}
